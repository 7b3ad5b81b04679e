package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

var _ ports.IDGenerator = (*Snowflake)(nil)

// Snowflake issues time ordered numeric order ids. Each API replica needs
// its own node number.
type Snowflake struct {
	node *snowflake.Node
}

func NewSnowflake(node int64) (*Snowflake, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return &Snowflake{node: n}, nil
}

func (s *Snowflake) NewOrderID() string {
	return s.node.Generate().String()
}
