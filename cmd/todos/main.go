package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"philcali.me/todos/internal/config"
	"philcali.me/todos/internal/dynamodb/services"
	todoData "philcali.me/todos/internal/dynamodb/todos"
	"philcali.me/todos/internal/logging"
	"philcali.me/todos/internal/operations"
	"philcali.me/todos/internal/schema"
)

type App struct {
	Router *operations.Router
	Logger *zap.Logger
}

func NewApp() App {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %s", err))
	}
	awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(cfg.Region))
	if err != nil {
		panic("Failed to load AWS config.")
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.IsLocal() {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	})
	table := services.NewTableService(cfg.TableName, client, logger)
	table.RequireExisting = cfg.RequireExisting
	router := operations.NewRouter(logger, operations.NewTodoRoute(
		todoData.NewTodoService(table, logger, cfg.PageSize),
		schema.NewValidator(nil, logger),
	))
	logger.Info("todo app initialized",
		zap.String("environment", cfg.Environment),
		zap.String("table", cfg.TableName),
		zap.Bool("local", cfg.IsLocal()))
	return App{
		Router: router,
		Logger: logger,
	}
}

func (app *App) HandleRequest(ctx context.Context, request operations.Request) (operations.Response, error) {
	return app.Router.Invoke(ctx, request), nil
}

func main() {
	app := NewApp()
	defer app.Logger.Sync()
	lambda.Start(app.HandleRequest)
}
