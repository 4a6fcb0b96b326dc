package model

// Appointment is one scheduled consultation inside a day bucket.
type Appointment struct {
	ID      int64  `json:"id"`
	Time    string `json:"time"`
	Patient string `json:"patient"`
	Title   string `json:"title"`
}

// Book maps a date key to that day's appointments, ordered by Time.
//
// A Book is treated as a value: methods that change it return a new Book and
// never write into slices that an older snapshot may still reference.
type Book map[string][]Appointment

// Appointments returns a copy of the list stored under key.
func (b Book) Appointments(key string) []Appointment {
	list := b[key]
	out := make([]Appointment, len(list))
	copy(out, list)
	return out
}

// Count returns how many appointments are stored under key.
func (b Book) Count(key string) int {
	return len(b[key])
}

// Find returns the appointment with the given id under key.
func (b Book) Find(key string, id int64) (Appointment, bool) {
	for _, a := range b[key] {
		if a.ID == id {
			return a, true
		}
	}
	return Appointment{}, false
}

// With returns a shallow copy of b with key set to list.
func (b Book) With(key string, list []Appointment) Book {
	out := make(Book, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[key] = list
	return out
}
