package store

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type fakeDynamo struct {
	pages   []map[string]types.AttributeValue // one item per page
	scanErr error
	scans   int
	put     *dynamodb.PutItemInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.put = in
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	idx := 0
	if in.ExclusiveStartKey != nil {
		n, _ := strconv.Atoi(in.ExclusiveStartKey["page"].(*types.AttributeValueMemberN).Value)
		idx = n
	}
	f.scans++
	out := &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{f.pages[idx]}}
	if idx+1 < len(f.pages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"page": &types.AttributeValueMemberN{Value: strconv.Itoa(idx + 1)},
		}
	}
	return out, nil
}

func item(user, image, created string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"UserId":      &types.AttributeValueMemberS{Value: user},
		"ImageId":     &types.AttributeValueMemberS{Value: image},
		"Created":     &types.AttributeValueMemberN{Value: created},
		"ContentType": &types.AttributeValueMemberS{Value: "image/jpeg"},
	}
}

func TestScanImages_FollowsPagination(t *testing.T) {
	fake := &fakeDynamo{pages: []map[string]types.AttributeValue{
		item("U1", "L1", "1700000000"),
		item("U1", "L2", "1700000001.5"),
		item("U2", "L3", "1700000002"),
	}}
	s := newDynamoImageStore(fake, "images")

	recs, err := s.ScanImages(context.Background())
	if err != nil {
		t.Fatalf("ScanImages: %v", err)
	}
	if fake.scans != 3 {
		t.Errorf("expected 3 Scan calls, got %d", fake.scans)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[1].ImageID != "L2" || recs[1].Created != 1700000001.5 {
		t.Errorf("unexpected record: %+v", recs[1])
	}
}

func TestScanImages_Error(t *testing.T) {
	s := newDynamoImageStore(&fakeDynamo{scanErr: errors.New("throttled")}, "images")
	if _, err := s.ScanImages(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPutImage_AttributeNames(t *testing.T) {
	fake := &fakeDynamo{}
	s := newDynamoImageStore(fake, "images")

	taken := 1699999999.0
	err := s.PutImage(context.Background(), &ImageRecord{
		UserID:      "U1",
		ImageID:     "L123",
		Created:     1700000000,
		ContentType: "image/jpeg",
		ObjectKey:   ".images/original/U1/L123",
		TakenAt:     &taken,
	})
	if err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	if *fake.put.TableName != "images" {
		t.Errorf("table = %s", *fake.put.TableName)
	}
	it := fake.put.Item
	if v, ok := it["UserId"].(*types.AttributeValueMemberS); !ok || v.Value != "U1" {
		t.Errorf("UserId = %#v", it["UserId"])
	}
	if v, ok := it["ImageId"].(*types.AttributeValueMemberS); !ok || v.Value != "L123" {
		t.Errorf("ImageId = %#v", it["ImageId"])
	}
	created, ok := it["Created"].(*types.AttributeValueMemberN)
	if !ok {
		t.Fatalf("Created is not a number: %#v", it["Created"])
	}
	if f, _ := strconv.ParseFloat(created.Value, 64); f != 1700000000 {
		t.Errorf("Created = %s", created.Value)
	}
	if _, ok := it["TakenAt"].(*types.AttributeValueMemberN); !ok {
		t.Errorf("TakenAt missing: %#v", it["TakenAt"])
	}
}

func TestPutImage_OmitsEmptyOptionalFields(t *testing.T) {
	fake := &fakeDynamo{}
	s := newDynamoImageStore(fake, "images")
	if err := s.PutImage(context.Background(), &ImageRecord{UserID: "U1", ImageID: "L1", Created: 1, ContentType: "image/png"}); err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	if _, ok := fake.put.Item["TakenAt"]; ok {
		t.Error("TakenAt should be omitted")
	}
	if _, ok := fake.put.Item["ObjectKey"]; ok {
		t.Error("ObjectKey should be omitted")
	}
}
