package source

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/querygo/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamoDB serves canned pages per scan segment. Pagination is
// driven through LastEvaluatedKey carrying the next page index.
type fakeDynamoDB struct {
	mu     sync.Mutex
	pages  map[int][][]map[string]types.AttributeValue
	inputs []*dynamodb.ScanInput
	err    error
}

func (f *fakeDynamoDB) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}

	seg := 0
	if params.Segment != nil {
		seg = int(*params.Segment)
	}
	page := 0
	if params.ExclusiveStartKey != nil {
		n := params.ExclusiveStartKey["page"].(*types.AttributeValueMemberN).Value
		page, _ = strconv.Atoi(n)
	}

	pages := f.pages[seg]
	if page >= len(pages) {
		return &dynamodb.ScanOutput{}, nil
	}

	out := &dynamodb.ScanOutput{Items: pages[page]}
	if page+1 < len(pages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"page": &types.AttributeValueMemberN{Value: strconv.Itoa(page + 1)},
		}
	}
	return out, nil
}

func ddbItem(name string, id int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"name": &types.AttributeValueMemberS{Value: name},
		"id":   &types.AttributeValueMemberN{Value: strconv.Itoa(id)},
	}
}

func TestDynamoDB_ScanPaginates(t *testing.T) {
	fake := &fakeDynamoDB{
		pages: map[int][][]map[string]types.AttributeValue{
			0: {
				{ddbItem("alice", 1), ddbItem("bob", 2)},
				{ddbItem("carol", 3)},
			},
		},
	}

	got, err := DynamoDB(fake, "users").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, got[0]["name"].Equal(record.String("alice")))
	assert.True(t, got[2]["id"].Equal(record.Int(3)))

	// Two pages mean two scan calls, the second carrying the cursor.
	require.Len(t, fake.inputs, 2)
	assert.Equal(t, "users", *fake.inputs[0].TableName)
	assert.Nil(t, fake.inputs[0].ExclusiveStartKey)
	assert.NotNil(t, fake.inputs[1].ExclusiveStartKey)
}

func TestDynamoDB_ParallelSegments(t *testing.T) {
	fake := &fakeDynamoDB{
		pages: map[int][][]map[string]types.AttributeValue{
			0: {{ddbItem("a", 1)}},
			1: {{ddbItem("b", 2)}, {ddbItem("c", 3)}},
			2: {{ddbItem("d", 4)}},
		},
	}

	got, err := DynamoDB(fake, "users", WithSegments(3)).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 4)

	// Results concatenate in segment order regardless of which segment
	// finished first.
	assert.True(t, got[0]["name"].Equal(record.String("a")))
	assert.True(t, got[1]["name"].Equal(record.String("b")))
	assert.True(t, got[2]["name"].Equal(record.String("c")))
	assert.True(t, got[3]["name"].Equal(record.String("d")))

	for _, input := range fake.inputs {
		require.NotNil(t, input.TotalSegments)
		assert.Equal(t, int32(3), *input.TotalSegments)
	}
}

func TestDynamoDB_ScanError(t *testing.T) {
	fake := &fakeDynamoDB{err: errors.New("throughput exceeded")}

	_, err := DynamoDB(fake, "users").Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to scan table "users"`)
}

func TestDynamoDB_SegmentErrorPropagates(t *testing.T) {
	fake := &fakeDynamoDB{err: errors.New("throughput exceeded")}

	_, err := DynamoDB(fake, "users", WithSegments(4)).Fetch(context.Background())
	assert.Error(t, err)
}

func TestDynamoDB_ConsistentRead(t *testing.T) {
	fake := &fakeDynamoDB{
		pages: map[int][][]map[string]types.AttributeValue{0: {{ddbItem("a", 1)}}},
	}

	_, err := DynamoDB(fake, "users", WithConsistentRead()).Fetch(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, fake.inputs)
	require.NotNil(t, fake.inputs[0].ConsistentRead)
	assert.True(t, *fake.inputs[0].ConsistentRead)
}

func TestAttrValue(t *testing.T) {
	tests := []struct {
		name string
		in   types.AttributeValue
		want record.Value
	}{
		{"string", &types.AttributeValueMemberS{Value: "web"}, record.String("web")},
		{"int number", &types.AttributeValueMemberN{Value: "42"}, record.Int(42)},
		{"float number", &types.AttributeValueMemberN{Value: "1.5"}, record.Float(1.5)},
		{"bool", &types.AttributeValueMemberBOOL{Value: true}, record.Bool(true)},
		{"null", &types.AttributeValueMemberNULL{Value: true}, record.Null()},
		{"binary", &types.AttributeValueMemberB{Value: []byte{0x01, 0x02}}, record.String("AQI=")},
		{
			"list",
			&types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: "a"},
				&types.AttributeValueMemberN{Value: "2"},
			}},
			record.Array([]record.Value{record.String("a"), record.Int(2)}),
		},
		{
			"map",
			&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"env": &types.AttributeValueMemberS{Value: "prod"},
			}},
			record.Object(map[string]record.Value{"env": record.String("prod")}),
		},
		{
			"string set",
			&types.AttributeValueMemberSS{Value: []string{"a", "b"}},
			record.Array([]record.Value{record.String("a"), record.String("b")}),
		},
		{
			"number set",
			&types.AttributeValueMemberNS{Value: []string{"1", "2.5"}},
			record.Array([]record.Value{record.Int(1), record.Float(2.5)}),
		},
		{
			"binary set",
			&types.AttributeValueMemberBS{Value: [][]byte{{0x01}}},
			record.Array([]record.Value{record.String("AQ==")}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := attrValue(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestAttrValue_BadNumber(t *testing.T) {
	_, err := attrValue(&types.AttributeValueMemberN{Value: "not-a-number"})
	assert.Error(t, err)
}
