package store

import (
	"fmt"

	"screamlink/internal/models"
)

// Document is a record addressable by collection and id.
type Document interface {
	TableName() string
	DocID() string
}

type collection struct {
	key    string
	newDoc func() Document
}

var collections = map[string]collection{
	models.CollectionScreams: {
		key:    models.FieldID,
		newDoc: func() Document { return &models.Scream{} },
	},
	models.CollectionComments: {
		key:    models.FieldID,
		newDoc: func() Document { return &models.Comment{} },
	},
	models.CollectionLikes: {
		key:    models.FieldID,
		newDoc: func() Document { return &models.Like{} },
	},
	models.CollectionNotifications: {
		key:    models.FieldID,
		newDoc: func() Document { return &models.Notification{} },
	},
	models.CollectionUsers: {
		key:    models.FieldHandle,
		newDoc: func() Document { return &models.User{} },
	},
}

func lookup(name string) (collection, error) {
	c, ok := collections[name]
	if !ok {
		return collection{}, fmt.Errorf("unknown collection %q", name)
	}
	return c, nil
}

// Models lists every document type, for migrations.
func Models() []any {
	return []any{
		&models.User{},
		&models.Scream{},
		&models.Comment{},
		&models.Like{},
		&models.Notification{},
	}
}
