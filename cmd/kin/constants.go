package main

import (
	"github.com/ersonp/kin-core/internal/application/handlers"
	"github.com/ersonp/kin-core/internal/domain/entities"
)

// Output formats.
const (
	formatTree = "tree"
	formatList = "list"
	formatJSON = "json"
)

const dateLayout = handlers.DateLayout

func roleKey(roleID string) string {
	return entities.RoleKeyFromID(roleID)
}
