package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"slices"

	sundaechat "github.com/SundaeSwap-finance/sundae-chat/sundae-chat"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chatrest"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	sundaerest "github.com/SundaeSwap-finance/sundae-chat/sundae-rest"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/localgw"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"
)

var service = sundaecli.NewService("chat-ws")

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
			sundaecli.PortFlag(5001),
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	if !sundaecli.CommonOpts.Console {
		stack, err := sundaechat.Build(service, nil)
		if err != nil {
			return err
		}
		lambda.Start(stack.WebSocketHandler().HandleEvent)
		return nil
	}

	// Console mode serves the WebSocket gateway at /ws and the REST API
	// beside it, pushing straight to the local sockets.
	logger := sundaecli.Logger(service)
	gateway := localgw.New(nil, logger)
	defer gateway.Close()

	stack, err := sundaechat.Build(service, gateway)
	if err != nil {
		return err
	}
	gateway.Handler = stack.WebSocketHandler()

	router := chi.NewRouter()
	router.Handle("/ws", gateway)
	router.Group(func(r chi.Router) {
		api := &chatrest.API{Service: stack.Service}
		api.Routes(sundaerest.Middlewares(service, r))
	})

	addr := fmt.Sprintf(":%v", sundaecli.CommonOpts.Port)
	logger.Info().Str("addr", addr).Bool("memory", sundaechat.ChatOpts.Memory).Msg("starting local gateway")
	return http.ListenAndServe(addr, router)
}
