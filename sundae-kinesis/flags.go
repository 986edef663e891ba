package sundaekinesis

import (
	"time"

	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/urfave/cli/v2"
)

var KinesisOpts struct {
	StreamName string
	Replay     bool
	ReplayFrom cli.Timestamp
}

var StreamNameFlag = sundaecli.StringFlag("stream-name", "The stream name to read records from; defaults to the chat events stream", &KinesisOpts.StreamName)
var ReplayFlag = sundaecli.BoolFlag("replay", "Whether to replay from the beginning, or start from the next message", &KinesisOpts.Replay)

var ReplayFromFlag = cli.TimestampFlag{
	Name:        "replay-from",
	Usage:       "Timestamp to replay from",
	Layout:      time.DateTime,
	EnvVars:     []string{"REPLAY_FROM"},
	Destination: &KinesisOpts.ReplayFrom,
}

var KinesisFlags = []cli.Flag{
	StreamNameFlag,
	ReplayFlag,
	&ReplayFromFlag,
}
