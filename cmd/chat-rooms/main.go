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

// Subscribed to the teams table stream; every new team gets a room.
var service = sundaecli.NewService("chat-rooms")

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
		sundaeddb.DDBOpts.TableName = sundaecli.ResourceName(sundaecli.CommonOpts.Env, "teams")
	}

	rooms := stack.RoomLifecycle()
	handler := sundaeddb.NewHandler(service, rooms.OnTeamInsert, nil, nil)
	handler.Logger = stack.Logger
	return handler.Start()
}
