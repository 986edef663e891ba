// Package sundaegql serves graphql-go schemas behind the shared CORS and
// logging middleware, locally or as an API Gateway Lambda.
package sundaegql

import (
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
)

// AllowIntrospection is false on the production network unless running in
// console mode.
func AllowIntrospection() bool {
	return sundaecli.CommonOpts.Network != "prod" || sundaecli.CommonOpts.Console
}

type Resolver interface {
	Schema() string
	Config() *BaseConfig
}
