package main

import (
	"log"
	"os"
	"slices"

	sundaechat "github.com/SundaeSwap-finance/sundae-chat/sundae-chat"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	"github.com/urfave/cli/v2"
)

// Subscribed to the users table stream; display name changes are copied onto
// everything the user has sent.
var service = sundaecli.NewService("chat-nickname")

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
	if sundaeddb.DDBOpts.TableName == "" {
		sundaeddb.DDBOpts.TableName = sundaecli.ResourceName(sundaecli.CommonOpts.Env, "users")
	}

	syncer := stack.NicknameSyncer()
	handler := sundaeddb.NewHandler(service, nil, syncer.OnProfileModify, nil)
	handler.Logger = stack.Logger
	return handler.Start()
}
