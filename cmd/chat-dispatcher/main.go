package main

import (
	"log"
	"os"
	"slices"

	sundaechat "github.com/SundaeSwap-finance/sundae-chat/sundae-chat"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	sundaekinesis "github.com/SundaeSwap-finance/sundae-chat/sundae-kinesis"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/publish"
	"github.com/urfave/cli/v2"
)

var service = sundaecli.NewService("chat-dispatcher")

func main() {
	app := sundaecli.App(
		service,
		action,
		slices.Concat(
			sundaecli.CommonFlags,
			sundaeddb.DDBFlags,
			sundaechat.ChatFlags,
			sundaekinesis.KinesisFlags,
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

	dispatcher := &sundaews.Dispatcher{Fanout: stack.Fanout, Logger: stack.Logger}
	handler := sundaekinesis.NewHandler(service, publish.StreamName(sundaecli.CommonOpts.Env), dispatcher.HandleRecord)
	return handler.Start()
}
