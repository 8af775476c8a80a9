package notify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
)

// ItemsURL is where a tapped notification leads.
const ItemsURL = "/#/items"

// Message is one notification as handed to a Notifier.
type Message struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Tag      string            `json:"tag"`
	Metadata map[string]string `json:"data"`
}

// ItemMessage builds the alert for a single due item.
func ItemMessage(d Due) Message {
	msg := Message{
		Metadata: map[string]string{
			"url":         ItemsURL,
			"item_id":     d.Item.ID,
			"status":      string(d.Status),
			"expiry_date": d.Item.ExpiryDate.String(),
		},
	}
	switch d.Status {
	case domain.StatusExpired:
		msg.Title = "Item Expired!"
		msg.Body = fmt.Sprintf("%s has expired. Buy a fresh one now.", d.Item.Name)
		msg.Tag = "expired-" + d.Item.ID
	default:
		msg.Title = "Expiring Soon!"
		msg.Body = fmt.Sprintf("%s is expiring soon. Tap to reorder.", d.Item.Name)
		msg.Tag = "expiring-soon-" + d.Item.ID
	}
	return msg
}

// DigestMessage aggregates every due item into one message.
func DigestMessage(due []Due) Message {
	soon, expired := 0, 0
	pairs := make([]string, 0, len(due))
	for _, d := range due {
		if d.Status == domain.StatusExpired {
			expired++
		} else {
			soon++
		}
		pairs = append(pairs, d.Item.ID+":"+string(d.Status))
	}
	sort.Strings(pairs)

	h := sha256.New()
	for _, p := range pairs {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}

	return Message{
		Title: "Expiry digest",
		Body:  fmt.Sprintf("%d item(s) expiring soon, %d expired.", soon, expired),
		Tag:   "digest-" + hex.EncodeToString(h.Sum(nil))[:16],
		Metadata: map[string]string{
			"url":     ItemsURL,
			"soon":    strconv.Itoa(soon),
			"expired": strconv.Itoa(expired),
		},
	}
}
