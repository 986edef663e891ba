package main

import (
	"context"
	"log"
	"os"
	"slices"
	"time"

	sundaechat "github.com/SundaeSwap-finance/sundae-chat/sundae-chat"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	sundaereport "github.com/SundaeSwap-finance/sundae-chat/sundae-report"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/urfave/cli/v2"
)

var service = sundaecli.NewService("chat-report")

var opts struct {
	Top int
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
				sundaereport.ReportFlags,
			),
			sundaecli.IntFlag("top", "How many of the busiest recipients to list", &opts.Top, 25),
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

	handler := sundaereport.NewHandler(service, "connections", func(ctx context.Context) (interface{}, error) {
		return sundaews.TakeCensus(ctx, stack.Connections, time.Now(), opts.Top)
	})
	return handler.Start()
}
