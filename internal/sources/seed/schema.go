package seed

// Entry is one item in a seed file.
//
// Exactly one of ExpiryDate or ExpiresInDays should be given. Relative
// offsets keep the sample meaningful whenever it is loaded.
type Entry struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Category      string `yaml:"category"`
	Notes         string `yaml:"notes"`
	ExpiryDate    string `yaml:"expiryDate"`
	ExpiresInDays *int   `yaml:"expiresInDays"`
	ReminderDays  int    `yaml:"reminderDays"`
}

// File is the root structure of a seed file.
type File struct {
	Items []Entry `yaml:"items"`
}
