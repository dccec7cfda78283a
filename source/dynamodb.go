package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/querygo/record"
	"golang.org/x/sync/errgroup"
)

// DynamoDBAPI is the interface for DynamoDB scan operations.
type DynamoDBAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDBFetcher scans a full DynamoDB table into records on every
// fetch. Pair it with a cache: a full scan is exactly the kind of
// expensive, rarely-changing collection TTL caching exists for.
type DynamoDBFetcher struct {
	client         DynamoDBAPI
	table          string
	segments       int
	consistentRead bool
}

// DynamoDBOption configures a DynamoDBFetcher.
type DynamoDBOption func(*DynamoDBFetcher)

// WithSegments splits the scan into n parallel segments. Values <= 1
// keep the scan sequential.
func WithSegments(n int) DynamoDBOption {
	return func(f *DynamoDBFetcher) {
		if n > 1 {
			f.segments = n
		}
	}
}

// WithConsistentRead requests strongly consistent reads.
func WithConsistentRead() DynamoDBOption {
	return func(f *DynamoDBFetcher) {
		f.consistentRead = true
	}
}

// DynamoDB creates a fetcher that scans table. The client is typically
// *dynamodb.Client from aws-sdk-go-v2.
func DynamoDB(client DynamoDBAPI, table string, optFns ...DynamoDBOption) *DynamoDBFetcher {
	f := &DynamoDBFetcher{
		client:   client,
		table:    table,
		segments: 1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(f)
		}
	}
	return f
}

// Fetch scans the table, in parallel when segments were configured.
// Records arrive in segment order, but order within the table is up to
// DynamoDB; queries that care must sort.
func (f *DynamoDBFetcher) Fetch(ctx context.Context) ([]record.Record, error) {
	if f.segments <= 1 {
		return f.scanSegment(ctx, nil, nil)
	}

	results := make([][]record.Record, f.segments)

	g, ctx := errgroup.WithContext(ctx)
	for seg := range f.segments {
		g.Go(func() error {
			records, err := f.scanSegment(ctx, aws.Int32(int32(seg)), aws.Int32(int32(f.segments)))
			if err != nil {
				return err
			}
			results[seg] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []record.Record
	for _, records := range results {
		all = append(all, records...)
	}
	return all, nil
}

func (f *DynamoDBFetcher) scanSegment(ctx context.Context, segment, totalSegments *int32) ([]record.Record, error) {
	input := &dynamodb.ScanInput{
		TableName:     aws.String(f.table),
		Segment:       segment,
		TotalSegments: totalSegments,
	}
	if f.consistentRead {
		input.ConsistentRead = aws.Bool(true)
	}

	var records []record.Record

	paginator := dynamodb.NewScanPaginator(f.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table %q: %w", f.table, err)
		}
		for _, item := range page.Items {
			r, err := itemRecord(item)
			if err != nil {
				return nil, fmt.Errorf("table %q: %w", f.table, err)
			}
			records = append(records, r)
		}
	}
	return records, nil
}

func itemRecord(item map[string]types.AttributeValue) (record.Record, error) {
	r := make(record.Record, len(item))
	for k, av := range item {
		v, err := attrValue(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		r[k] = v
	}
	return r, nil
}

// attrValue maps a DynamoDB attribute value to a record value. Numbers
// follow the same int-before-float policy as JSON decoding; binary
// attributes become base64 strings, since records carry no byte kind.
func attrValue(av types.AttributeValue) (record.Value, error) {
	switch x := av.(type) {
	case *types.AttributeValueMemberS:
		return record.String(x.Value), nil
	case *types.AttributeValueMemberN:
		return record.FromAny(json.Number(x.Value))
	case *types.AttributeValueMemberBOOL:
		return record.Bool(x.Value), nil
	case *types.AttributeValueMemberNULL:
		return record.Null(), nil
	case *types.AttributeValueMemberB:
		return record.String(base64.StdEncoding.EncodeToString(x.Value)), nil
	case *types.AttributeValueMemberL:
		arr := make([]record.Value, len(x.Value))
		for i := range x.Value {
			v, err := attrValue(x.Value[i])
			if err != nil {
				return record.Value{}, err
			}
			arr[i] = v
		}
		return record.Array(arr), nil
	case *types.AttributeValueMemberM:
		obj := make(map[string]record.Value, len(x.Value))
		for k, e := range x.Value {
			v, err := attrValue(e)
			if err != nil {
				return record.Value{}, err
			}
			obj[k] = v
		}
		return record.Object(obj), nil
	case *types.AttributeValueMemberSS:
		arr := make([]record.Value, len(x.Value))
		for i := range x.Value {
			arr[i] = record.String(x.Value[i])
		}
		return record.Array(arr), nil
	case *types.AttributeValueMemberNS:
		arr := make([]record.Value, len(x.Value))
		for i := range x.Value {
			v, err := record.FromAny(json.Number(x.Value[i]))
			if err != nil {
				return record.Value{}, err
			}
			arr[i] = v
		}
		return record.Array(arr), nil
	case *types.AttributeValueMemberBS:
		arr := make([]record.Value, len(x.Value))
		for i := range x.Value {
			arr[i] = record.String(base64.StdEncoding.EncodeToString(x.Value[i]))
		}
		return record.Array(arr), nil
	default:
		return record.Value{}, fmt.Errorf("unsupported attribute type %T", av)
	}
}
