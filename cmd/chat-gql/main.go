package main

import (
	"log"
	"os"
	"slices"

	sundaechat "github.com/SundaeSwap-finance/sundae-chat/sundae-chat"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chatgql"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	sundaegql "github.com/SundaeSwap-finance/sundae-chat/sundae-gql"
	"github.com/urfave/cli/v2"
)

var service = sundaecli.NewSubpathService("chat-gql")

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
			sundaecli.PortFlag(5003),
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
	return sundaegql.Webserver(chatgql.New(sundaegql.NewConfig(service), stack.Service))
}
