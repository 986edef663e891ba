package main

import (
	"log"
	"os"
	"slices"

	sundaechat "github.com/SundaeSwap-finance/sundae-chat/sundae-chat"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chatrest"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	sundaerest "github.com/SundaeSwap-finance/sundae-chat/sundae-rest"
	sundaesecret "github.com/SundaeSwap-finance/sundae-chat/sundae-secret"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/publish"
	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"
)

var service = sundaecli.NewService("chat-api")

var opts struct {
	AsyncBroadcast bool
}

func main() {
	app := sundaecli.App(
		service,
		action,
		append(
			slices.Concat(
				sundaecli.CommonFlags,
				sundaeddb.DDBFlags,
				sundaechat.ChatFlags,
			),
			sundaechat.SecretNameFlag,
			sundaecli.BoolFlag("async-broadcast", "Queue POST /broadcast on the events stream instead of delivering inline", &opts.AsyncBroadcast),
			sundaecli.PortFlag(5002),
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	stack, err := sundaechat.Build(service, nil)
	if err != nil {
		return err
	}

	api := &chatrest.API{Service: stack.Service}
	if name := sundaechat.ChatOpts.SecretName; name != "" && stack.Session != nil {
		secret, err := sundaesecret.Load[chatrest.Secret](stack.Session, name)
		if err != nil {
			return err
		}
		api.APIKey = secret.APIKey
	} else if !sundaecli.CommonOpts.Console {
		stack.Logger.Warn().Msg("no --secret-name; /broadcast is unauthenticated")
	}
	if opts.AsyncBroadcast && stack.Session != nil {
		api.Publisher = publish.Build(stack.Session, sundaecli.CommonOpts.Env)
	}

	router := sundaerest.Middlewares(service, chi.NewRouter())
	if stack.Metrics != nil {
		router.Use(sundaerest.WithMetrics(stack.Metrics))
	}
	return sundaerest.Webserver(service, api.Routes(router))
}
