package gen

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("snowflake",
	fx.Provide(NewNode),
)

// NewNode returns the snowflake node used for journal entry IDs.
// Node ID 1 is fine for a single settlement instance; multi-instance
// deployments should derive it from the environment.
func NewNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
