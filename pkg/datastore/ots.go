package datastore

import (
	"fmt"
	"sync"

	"github.com/aliyun/aliyun-tablestore-go-sdk/tablestore"
	conf "github.com/devsapp/ripeness-uploader/pkg/config"
)

const otsListLimit = 1000

var (
	otsClient    *tablestore.TableStoreClient
	once         sync.Once
	strToOtsType = map[string]tablestore.DefinedColumnType{
		"text":  tablestore.DefinedColumn_STRING,
		"int":   tablestore.DefinedColumn_INTEGER,
		"float": tablestore.DefinedColumn_DOUBLE,
	}
)

// example: "TEXT" to tablestore.DefinedColumn_STRING
func getOtsType(s string) (tablestore.DefinedColumnType, error) {
	if t, ok := strToOtsType[columnType(s)]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unsupported column type: %s", s)
}

// InitOtsClient init ots client
func InitOtsClient() {
	otsClient = tablestore.NewClientWithConfig(conf.ConfigGlobal.OtsEndpoint, conf.ConfigGlobal.OtsInstanceName,
		conf.ConfigGlobal.AccessKeyId, conf.ConfigGlobal.AccessKeySecret, conf.ConfigGlobal.AccessKeyToken, nil)
}

type OtsStore struct {
	config *Config
}

func NewOtsDatastore(config *Config) (*OtsStore, error) {
	// init otsClient, only first call valid
	once.Do(InitOtsClient)

	// check table is exist or not
	describeTableRequest := &tablestore.DescribeTableRequest{
		TableName: config.TableName,
	}
	if tableInfo, err := otsClient.DescribeTable(describeTableRequest); err == nil && tableInfo.TableMeta != nil {
		return &OtsStore{config: config}, nil
	}
	// create table
	createTableRequest := new(tablestore.CreateTableRequest)
	tableMeta := new(tablestore.TableMeta)
	tableMeta.TableName = config.TableName
	tableMeta.AddPrimaryKeyColumn(config.PrimaryKeyColumnName, tablestore.PrimaryKeyType_STRING)
	for field, cate := range config.ColumnConfig {
		otsType, err := getOtsType(cate)
		if err != nil {
			return nil, err
		}
		tableMeta.AddDefinedColumn(field, otsType)
	}
	tableOption := new(tablestore.TableOption)
	tableOption.TimeToAlive = config.TimeToAlive
	tableOption.MaxVersion = config.MaxVersion
	reservedThroughput := new(tablestore.ReservedThroughput)
	reservedThroughput.Readcap = 0
	reservedThroughput.Writecap = 0
	createTableRequest.TableMeta = tableMeta
	createTableRequest.TableOption = tableOption
	createTableRequest.ReservedThroughput = reservedThroughput

	if _, err := otsClient.CreateTable(createTableRequest); err != nil {
		return nil, err
	}
	return &OtsStore{config: config}, nil
}

func (o *OtsStore) primaryKey(key string) *tablestore.PrimaryKey {
	pk := new(tablestore.PrimaryKey)
	pk.AddPrimaryKeyColumn(o.config.PrimaryKeyColumnName, key)
	return pk
}

func (o *OtsStore) Get(key string, columns []string) (map[string]interface{}, error) {
	getRowRequest := new(tablestore.GetRowRequest)
	getRowRequest.SingleRowQueryCriteria = &tablestore.SingleRowQueryCriteria{
		PrimaryKey:   o.primaryKey(key),
		ColumnsToGet: columns,
		TableName:    o.config.TableName,
		MaxVersion:   1,
	}
	resp, err := otsClient.GetRow(getRowRequest)
	if err != nil {
		return nil, err
	}
	columnMap := resp.GetColumnMap()
	if len(columnMap.Columns) == 0 {
		return nil, nil
	}
	ret := make(map[string]interface{})
	for key, items := range columnMap.Columns {
		ret[key] = items[0].Value
	}
	return ret, nil
}

func (o *OtsStore) Put(key string, datas map[string]interface{}) error {
	putRowRequest := new(tablestore.PutRowRequest)
	putRowChange := new(tablestore.PutRowChange)
	putRowChange.TableName = o.config.TableName
	putRowChange.PrimaryKey = o.primaryKey(key)
	for col, data := range datas {
		if col == o.config.PrimaryKeyColumnName {
			continue
		}
		putRowChange.AddColumn(col, data)
	}
	putRowChange.SetCondition(tablestore.RowExistenceExpectation_IGNORE)
	putRowRequest.PutRowChange = putRowChange
	if _, err := otsClient.PutRow(putRowRequest); err != nil {
		return err
	}
	return nil
}

func (o *OtsStore) Update(key string, datas map[string]interface{}) error {
	updateRowRequest := new(tablestore.UpdateRowRequest)
	updateRowChange := new(tablestore.UpdateRowChange)
	updateRowChange.TableName = o.config.TableName
	updateRowChange.PrimaryKey = o.primaryKey(key)
	for col, data := range datas {
		updateRowChange.PutColumn(col, data)
	}
	updateRowChange.SetCondition(tablestore.RowExistenceExpectation_EXPECT_EXIST)
	updateRowRequest.UpdateRowChange = updateRowChange
	if _, err := otsClient.UpdateRow(updateRowRequest); err != nil {
		return err
	}
	return nil
}

func (o *OtsStore) ListAll(columns []string) (map[string]map[string]interface{}, error) {
	startPK := new(tablestore.PrimaryKey)
	startPK.AddPrimaryKeyColumnWithMinValue(o.config.PrimaryKeyColumnName)
	endPK := new(tablestore.PrimaryKey)
	endPK.AddPrimaryKeyColumnWithMaxValue(o.config.PrimaryKeyColumnName)

	resp := make(map[string]map[string]interface{})
	for startPK != nil {
		rangeRowQueryCriteria := &tablestore.RangeRowQueryCriteria{
			TableName:       o.config.TableName,
			StartPrimaryKey: startPK,
			EndPrimaryKey:   endPK,
			Direction:       tablestore.FORWARD,
			MaxVersion:      1,
			Limit:           otsListLimit,
			ColumnsToGet:    columns,
		}
		getRangeResp, err := otsClient.GetRange(&tablestore.GetRangeRequest{
			RangeRowQueryCriteria: rangeRowQueryCriteria,
		})
		if err != nil {
			return nil, err
		}
		for _, row := range getRangeResp.Rows {
			key := row.PrimaryKey.PrimaryKeys[0].Value.(string)
			result := map[string]interface{}{o.config.PrimaryKeyColumnName: key}
			for _, col := range row.Columns {
				result[col.ColumnName] = col.Value
			}
			resp[key] = result
		}
		startPK = getRangeResp.NextStartPrimaryKey
	}
	return resp, nil
}

func (o *OtsStore) Close() error {
	// do nothing
	return nil
}
