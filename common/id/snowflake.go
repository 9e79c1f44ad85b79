package id

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
// Each server replica sharing a document store needs its own node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new globally unique int64 ID using the Snowflake algorithm.
// Workshop and step ids are time-ordered, so a freshly seeded catalog keeps
// ascending ids in step order.
func New() int64 {
	return node.Generate().Int64()
}

// Key renders an id as a document key for stores that address documents by string.
func Key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Parse is the inverse of Key.
func Parse(key string) (int64, error) {
	return strconv.ParseInt(key, 10, 64)
}
