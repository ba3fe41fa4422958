// Package keys maps user and item identifiers onto the composite keys of the
// single table. Every to-do lives under its owner's partition and a sort key
// carrying the item marker, so a begins_with query scopes all of a user's
// items without a secondary index.
package keys

import (
	"regexp"
	"strings"

	"philcali.me/todos/internal/exceptions"
)

const (
	PartitionKeyAttr = "PK"
	SortKeyAttr      = "SK"

	UserPrefix = "USER#"
	ItemPrefix = "TODO#"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func UserPartitionKey(email string) (string, error) {
	if !emailPattern.MatchString(email) {
		return "", exceptions.InvalidIdentifier("email", email)
	}
	return UserPrefix + email, nil
}

func ItemSortKey(id string) (string, error) {
	if id == "" {
		return "", exceptions.InvalidIdentifier("todo", id)
	}
	return ItemPrefix + id, nil
}

func ItemSortKeyPrefix() string {
	return ItemPrefix
}

// ItemID recovers the item id from a sort key.
func ItemID(sortKey string) string {
	return strings.TrimPrefix(sortKey, ItemPrefix)
}
