package sundaeddb

import (
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/urfave/cli/v2"
)

var DDBOpts struct {
	DAXCluster string
	Endpoint   string
	Region     string
	TableName  string
}

var DAXClusterFlag = sundaecli.StringFlag("dax-cluster", "The DAX cluster to connect to", &DDBOpts.DAXCluster)
var EndpointFlag = sundaecli.StringFlag("dynamodb-endpoint", "Override the DynamoDB endpoint, e.g. http://localhost:8000 for DynamoDB Local", &DDBOpts.Endpoint)
var RegionFlag = sundaecli.StringFlag("region", "The AWS region used for DAX connections", &DDBOpts.Region, "us-east-2")
var TableNameFlag = sundaecli.StringFlag("table-name", "The table name to read streams from", &DDBOpts.TableName)

var DDBFlags = []cli.Flag{
	DAXClusterFlag,
	EndpointFlag,
	RegionFlag,
	TableNameFlag,
}
