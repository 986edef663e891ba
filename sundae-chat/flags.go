package sundaechat

import (
	"time"

	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/urfave/cli/v2"
)

var ChatOpts struct {
	WSEndpoint        string
	ConnTTL           time.Duration
	SingleSession     bool
	FanoutConcurrency int
	SendTimeout       time.Duration
	InlineFanout      bool
	Memory            bool
	StreamSource      string
	SecretName        string
}

var WSEndpointFlag = sundaecli.StringFlag("ws-endpoint", "Override the API Gateway management endpoint used to push to connections", &ChatOpts.WSEndpoint)
var ConnTTLFlag = sundaecli.DurationFlag("conn-ttl", "How long a connection row lives without a disconnect", &ChatOpts.ConnTTL, sundaews.DefaultConnTTL)
var SingleSessionFlag = sundaecli.BoolFlag("single-session", "Drop a user's other connections when they connect again", &ChatOpts.SingleSession)
var FanoutConcurrencyFlag = sundaecli.IntFlag("fanout-concurrency", "Max concurrent pushes per broadcast", &ChatOpts.FanoutConcurrency, sundaews.DefaultConcurrency)
var SendTimeoutFlag = sundaecli.DurationFlag("send-timeout", "Timeout for a single push", &ChatOpts.SendTimeout, sundaews.DefaultSendTimeout)
var InlineFanoutFlag = sundaecli.BoolFlag("inline-fanout", "Push events from the request path instead of relying on table streams", &ChatOpts.InlineFanout)
var MemoryFlag = sundaecli.BoolFlag("memory", "Keep all state in memory (console mode only)", &ChatOpts.Memory)
var StreamSourceFlag = sundaecli.StringFlag("stream-source", "Which table stream to fan out: messages or notifications", &ChatOpts.StreamSource, MessagesSource)
var SecretNameFlag = sundaecli.StringFlag("secret-name", "Secrets Manager secret holding the admin API key", &ChatOpts.SecretName)

var ChatFlags = []cli.Flag{
	WSEndpointFlag,
	ConnTTLFlag,
	SingleSessionFlag,
	FanoutConcurrencyFlag,
	SendTimeoutFlag,
	InlineFanoutFlag,
	MemoryFlag,
}
