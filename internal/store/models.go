package store

import "time"

// RemovedDocumentName is the name reported for ids with no stored document.
const RemovedDocumentName = "[Removed]"

type Document struct {
	ID             string
	Title          string
	OwnerID        string
	OrganizationID string
	InitialContent string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DocumentRecord is the shape handed to the collaboration provider.
type DocumentRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (d Document) Record() DocumentRecord {
	name := d.Title
	if name == "" {
		name = "Untitled"
	}
	return DocumentRecord{ID: d.ID, Name: name}
}
