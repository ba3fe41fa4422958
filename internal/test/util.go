package test

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"philcali.me/todos/internal/dynamodb/keys"
)

const LOCAL_DDB_PORT = 8000
const TABLE_NAME = "TodoData"

// DDB_LOCAL_DIR overrides where the DynamoDB Local distribution is unpacked.
const DDB_LOCAL_DIR = "DYNAMODB_LOCAL_DIR"

func CreateTable(client *dynamodb.Client) (string, error) {
	keySchema := []types.KeySchemaElement{
		{
			AttributeName: aws.String(keys.PartitionKeyAttr),
			KeyType:       types.KeyTypeHash,
		},
		{
			AttributeName: aws.String(keys.SortKeyAttr),
			KeyType:       types.KeyTypeRange,
		},
	}
	attributes := []types.AttributeDefinition{
		{
			AttributeName: aws.String(keys.PartitionKeyAttr),
			AttributeType: types.ScalarAttributeTypeS,
		},
		{
			AttributeName: aws.String(keys.SortKeyAttr),
			AttributeType: types.ScalarAttributeTypeS,
		},
	}
	output, err := client.CreateTable(context.TODO(), &dynamodb.CreateTableInput{
		TableName:            aws.String(TABLE_NAME),
		KeySchema:            keySchema,
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attributes,
	})
	if err != nil {
		return "", err
	}
	waiter := dynamodb.NewTableExistsWaiter(client, func(tewo *dynamodb.TableExistsWaiterOptions) {
		tewo.LogWaitAttempts = true
	})
	_, err = waiter.WaitForOutput(context.TODO(), &dynamodb.DescribeTableInput{
		TableName: output.TableDescription.TableName,
	}, time.Second*5)
	return *output.TableDescription.TableName, err
}

func (l *LocalDynamoServer) Endpoint() string {
	return fmt.Sprintf("http://localhost:%d", l.Port)
}

func (l *LocalDynamoServer) CreateLocalClient() (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRetryMaxAttempts(10),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     "fake",
				SecretAccessKey: "fake",
				SessionToken:    "fake",
			}}),
	)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(l.Endpoint())
	}), nil
}

type LocalDynamoServer struct {
	Process *os.Process
	Port    int
}

func localDir() string {
	if dir := os.Getenv(DDB_LOCAL_DIR); dir != "" {
		return dir
	}
	return filepath.Join(os.Getenv("PWD"), "..", "..", "..", "dynamodb")
}

func waitForPort(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), 100*time.Millisecond)
		if err == nil {
			return conn.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("local DDB server did not listen on %d within %s", port, timeout)
}

// StartLocalServer launches DynamoDB Local in memory, skipping the test when
// java or the DynamoDBLocal jar is unavailable.
func StartLocalServer(port int, t *testing.T) *LocalDynamoServer {
	t.Helper()
	dir := localDir()
	jar := filepath.Join(dir, "DynamoDBLocal.jar")
	if _, err := os.Stat(jar); err != nil {
		t.Skipf("DynamoDB Local not found at %s", jar)
	}
	if _, err := exec.LookPath("java"); err != nil {
		t.Skip("java is required to run DynamoDB Local")
	}
	cmd := exec.Command(
		"java", fmt.Sprintf("-Djava.library.path=%s", filepath.Join(dir, "DynamoDBLocal_lib")),
		"-jar", jar,
		"-port", strconv.Itoa(port),
		"-inMemory",
	)
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start local DDB server: %s", err)
	}
	t.Cleanup(func() {
		if err := cmd.Process.Kill(); err != nil {
			t.Errorf("Failed to terminate local DDB server: %s", err)
		}
	})
	if err := waitForPort(port, 10*time.Second); err != nil {
		t.Fatal(err)
	}
	return &LocalDynamoServer{Port: port, Process: cmd.Process}
}
