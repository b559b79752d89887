package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// OrderNumbers hands out human-readable order numbers. Implementations must
// be safe for concurrent use and never repeat a number.
type OrderNumbers interface {
	Next() string
}

// SnowflakeNumbers formats snowflake ids as ORD-YYYYMMDD-<base36>.
type SnowflakeNumbers struct {
	node *snowflake.Node
	now  func() time.Time
}

// NewSnowflakeNumbers creates a generator for one node. Each server process
// sharing a database needs its own node id (0-1023).
func NewSnowflakeNumbers(nodeID int64) (*SnowflakeNumbers, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &SnowflakeNumbers{node: node, now: time.Now}, nil
}

func (n *SnowflakeNumbers) Next() string {
	id := n.node.Generate()
	return fmt.Sprintf("ORD-%s-%s", n.now().UTC().Format("20060102"), strings.ToUpper(id.Base36()))
}
