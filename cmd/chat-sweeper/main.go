package main

import (
	"context"
	"log"
	"os"
	"slices"

	sundaechat "github.com/SundaeSwap-finance/sundae-chat/sundae-chat"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaecron "github.com/SundaeSwap-finance/sundae-chat/sundae-cron"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/urfave/cli/v2"
)

var service = sundaecli.NewService("chat-sweeper")

func main() {
	app := sundaecli.App(
		service,
		action,
		slices.Concat(
			sundaecli.CommonFlags,
			sundaeddb.DDBFlags,
			sundaechat.ChatFlags,
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

	sweeper := &sundaews.Sweeper{
		Connections: stack.Connections,
		Logger:      stack.Logger,
		Dry:         sundaecli.CommonOpts.Dry,
		Metrics:     stack.Metrics,
	}
	handler := sundaecron.NewHandler(service, func(ctx context.Context) error {
		_, err := sweeper.Sweep(ctx)
		return err
	})
	return handler.Start()
}
