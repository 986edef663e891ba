package sundaegql

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/graphiql"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/rs/zerolog"
	"github.com/savaki/apigateway"
)

const (
	maxQueryDepth = 12
	maxBodyBytes  = 64 << 10
)

// Webserver serves the resolver's schema at /graphql, with GraphiQL on GET
// when introspection is allowed.
func Webserver(resolver Resolver) error {
	config := resolver.Config()
	router, err := NewRouter(resolver)
	if err != nil {
		return err
	}
	return Serve(router, config)
}

// NewRouter builds the routes Webserver serves, without starting anything.
func NewRouter(resolver Resolver) (chi.Router, error) {
	config := resolver.Config()
	relay, err := GraphQLRelay(resolver)
	if err != nil {
		return nil, err
	}

	handler := middleware.NoCache(http.MaxBytesHandler(relay, maxBodyBytes))

	router := DefaultRouter(config.Logger)
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Post("/graphql", handler.ServeHTTP)
	// clients sometimes append the operation name to the path
	router.Post("/graphql/*", handler.ServeHTTP)
	if AllowIntrospection() {
		path := "/graphql"
		if config.Service.Subpath != "" {
			path = fmt.Sprintf("/%v/graphql", config.Service.Subpath)
		}
		router.Get("/graphql", graphiql.New(path))
	}
	return router, nil
}

// GraphQLRelay parses the merged schema against the resolver.
func GraphQLRelay(resolver Resolver) (*relay.Handler, error) {
	finalSchema := resolver.Schema()

	config := resolver.Config()
	config.Service.Schema = finalSchema

	opts := []graphql.SchemaOpt{
		graphql.MaxDepth(maxQueryDepth),
		graphql.UseFieldResolvers(),
	}
	if !AllowIntrospection() {
		opts = append(opts, graphql.DisableIntrospection())
	}

	schema, err := graphql.ParseSchema(finalSchema, resolver, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	return &relay.Handler{Schema: schema}, nil
}

func DefaultRouter(logger zerolog.Logger) chi.Router {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		WithCORS(),
		WithLogger(logger),
		middleware.Recoverer,
	)
	return router
}

// Serve listens on --port in console mode and otherwise hands the router to
// API Gateway.
func Serve(router chi.Router, config *BaseConfig) error {
	if !sundaecli.CommonOpts.Console {
		lambda.Start(apigateway.Wrap(router, sundaecli.CommonOpts.Env, config.Service.Subpath))
		return nil
	}

	if config.Service.Subpath != "" {
		mounted := chi.NewRouter()
		mounted.Mount(fmt.Sprintf("/%v", config.Service.Subpath), router)
		router = mounted
	}

	config.Logger.Info().Int("port", sundaecli.CommonOpts.Port).Msgf("starting %v", config.Service.Name)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%v", sundaecli.CommonOpts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}
