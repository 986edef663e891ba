package main

import (
	"log"
	"os"
	"slices"

	sundaechat "github.com/SundaeSwap-finance/sundae-chat/sundae-chat"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/messagedao"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/notificationdao"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	"github.com/urfave/cli/v2"
)

var service = sundaecli.NewService("chat-fanout")

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
			sundaechat.StreamSourceFlag,
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

	source := sundaechat.ChatOpts.StreamSource
	if sundaeddb.DDBOpts.TableName == "" {
		switch source {
		case sundaechat.MessagesSource:
			sundaeddb.DDBOpts.TableName = messagedao.TableName(sundaecli.CommonOpts.Env)
		case sundaechat.NotificationsSource:
			sundaeddb.DDBOpts.TableName = notificationdao.TableName(sundaecli.CommonOpts.Env)
		}
	}

	fanout := &sundaechat.StreamFanout{Fanout: stack.Fanout, Logger: stack.Logger}
	handler, err := fanout.NewHandler(service, source)
	if err != nil {
		return err
	}
	return handler.Start()
}
