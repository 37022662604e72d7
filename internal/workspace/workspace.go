package workspace

import (
	"slices"
	"time"

	"github.com/kazz187/collabspace/internal/gateway"
)

const Collection = "workspaces"

type Workspace struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Members     []string  `yaml:"members"`
	CreatedBy   string    `yaml:"createdBy"`
	CreatedAt   time.Time `yaml:"createdAt"`
}

func (w Workspace) HasMember(uid string) bool {
	return slices.Contains(w.Members, uid)
}

func fromDocument(doc *gateway.Document) Workspace {
	f := doc.Fields
	return Workspace{
		ID:          doc.ID,
		Name:        f.String("name"),
		Description: f.String("description"),
		Members:     f.Strings("members"),
		CreatedBy:   f.String("createdBy"),
		CreatedAt:   f.Time("createdAt"),
	}
}
