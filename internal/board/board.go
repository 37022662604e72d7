package board

import (
	"time"

	"github.com/kazz187/collabspace/internal/gateway"
)

const Collection = "boards"

type Board struct {
	ID          string
	Title       string
	WorkspaceID string
	CreatedBy   string
	CreatedAt   time.Time
}

// fromDocument decodes a stored board. Older documents carry the title under
// "name".
func fromDocument(doc *gateway.Document) Board {
	f := doc.Fields
	title := f.String("title")
	if title == "" {
		title = f.String("name")
	}
	return Board{
		ID:          doc.ID,
		Title:       title,
		WorkspaceID: f.String("workspaceId"),
		CreatedBy:   f.String("createdBy"),
		CreatedAt:   f.Time("createdAt"),
	}
}
