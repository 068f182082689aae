package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var node *snowflake.Node
var once sync.Once

// Init sets the node id stamped into generated ids. It must run before the
// first GenerateId call to take effect; an invalid id falls back to node 1.
func Init(workId int64) (err error) {
	once.Do(func() {
		node, err = snowflake.NewNode(workId)
		if err != nil {
			node, _ = snowflake.NewNode(1)
		}
	})
	return
}

func GenerateId() int64 {
	return nodeOrDefault().Generate().Int64()
}

// GenerateString returns an id in base58, short enough for log fields.
func GenerateString() string {
	return nodeOrDefault().Generate().Base58()
}

func nodeOrDefault() *snowflake.Node {
	once.Do(func() {
		node, _ = snowflake.NewNode(1)
	})
	return node
}
