package handlers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
)

var validate = validator.New()

// itemView is an item plus its status at request time.
type itemView struct {
	domain.Item
	Status  domain.Status `json:"status"`
	Snoozed bool          `json:"snoozed"`
}

func viewOf(it domain.Item, now time.Time, loc *time.Location) itemView {
	return itemView{Item: it, Status: it.Status(now, loc), Snoozed: it.Snoozed(now)}
}

// itemRequest is the body of create and edit calls.
type itemRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Category     string `json:"category" validate:"max=50"`
	Notes        string `json:"notes" validate:"max=2000"`
	ExpiryDate   string `json:"expiryDate" validate:"required"`
	ReminderDays int    `json:"reminderDays" validate:"max=3650"`
}

func (req itemRequest) toItem(loc *time.Location) (domain.Item, error) {
	expiry, err := domain.ParseDateIn(req.ExpiryDate, loc)
	if err != nil {
		return domain.Item{}, err
	}
	return domain.Item{
		Name:         req.Name,
		Category:     domain.Category(req.Category),
		Notes:        req.Notes,
		ExpiryDate:   expiry,
		ReminderDays: req.ReminderDays,
	}, nil
}

func readItem(w http.ResponseWriter, r *http.Request, loc *time.Location) (domain.Item, bool) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return domain.Item{}, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.Item{}, false
	}
	it, err := req.toItem(loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.Item{}, false
	}
	return it, true
}

// ListItems returns all items, optionally filtered by ?status= and ?q=.
func ListItems(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := d.Store.GetItems(r.Context())
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		status := domain.Status(r.URL.Query().Get("status"))
		q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
		now, loc := d.Now(), d.Loc()

		out := make([]itemView, 0, len(items))
		for _, it := range items {
			v := viewOf(it, now, loc)
			if status != "" && v.Status != status {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(it.Name), q) {
				continue
			}
			out = append(out, v)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := d.Store.GetItem(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(it, d.Now(), d.Loc()))
	}
}

func CreateItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, ok := readItem(w, r, d.Loc())
		if !ok {
			return
		}
		created, err := d.Store.AddItem(r.Context(), it)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		w.Header().Set("Location", "/api/items/"+created.ID)
		writeJSON(w, http.StatusCreated, viewOf(created, d.Now(), d.Loc()))
	}
}

// UpdateItem replaces an item's editable fields. The notification marker
// is reset so the new state is re-evaluated.
func UpdateItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, ok := readItem(w, r, d.Loc())
		if !ok {
			return
		}
		it.ID = chi.URLParam(r, "id")
		updated, err := d.Store.UpdateItem(r.Context(), it)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(updated, d.Now(), d.Loc()))
	}
}

func DeleteItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type snoozeRequest struct {
	Days int `json:"days"`
}

func SnoozeItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req snoozeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		it, err := d.Store.SnoozeItem(r.Context(), chi.URLParam(r, "id"), req.Days)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(it, d.Now(), d.Loc()))
	}
}

// Reorder resolves the "buy again" link. With ?redirect=1 the client is
// sent straight to it.
func Reorder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := d.Store.GetItem(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		res := d.Resolver.Resolve(r.Context(), it)
		if r.URL.Query().Get("redirect") == "1" {
			http.Redirect(w, r, res.URL, http.StatusFound)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

const attentionLimit = 5

type summaryResponse struct {
	Total     int                   `json:"total"`
	Counts    map[domain.Status]int `json:"counts"`
	Attention []itemView            `json:"attention"`
}

// Summary returns dashboard counts and the items needing attention first.
func Summary(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := d.Store.GetItems(r.Context())
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		now, loc := d.Now(), d.Loc()
		resp := summaryResponse{
			Total: len(items),
			Counts: map[domain.Status]int{
				domain.StatusActive:  0,
				domain.StatusSoon:    0,
				domain.StatusExpired: 0,
			},
			Attention: []itemView{},
		}
		for _, it := range items {
			v := viewOf(it, now, loc)
			resp.Counts[v.Status]++
			if v.Status != domain.StatusActive {
				resp.Attention = append(resp.Attention, v)
			}
		}
		sort.SliceStable(resp.Attention, func(i, j int) bool {
			return resp.Attention[i].ExpiryDate.Before(resp.Attention[j].ExpiryDate)
		})
		if len(resp.Attention) > attentionLimit {
			resp.Attention = resp.Attention[:attentionLimit]
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
