package document

import "time"

// Document is a shared text document. Author and Editors are usernames;
// the author is never listed among the editors.
type Document struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Title        string    `json:"title" bson:"title"`
	Content      string    `json:"content" bson:"content"`
	Author       string    `json:"author" bson:"author"`
	Editors      []string  `json:"editors" bson:"editors"`
	Public       bool      `json:"public" bson:"public"`
	CreationDate time.Time `json:"creation_date" bson:"creationDate"`
}

// HasEditor reports whether username is one of the document's editors.
func (d *Document) HasEditor(username string) bool {
	for _, e := range d.Editors {
		if e == username {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never share the editors slice.
func (d *Document) Clone() *Document {
	cp := *d
	cp.Editors = append([]string{}, d.Editors...)
	return &cp
}
