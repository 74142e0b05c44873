package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/yungbote/mediahub-backend/internal/platform/blob"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type fakeObjects struct {
	objects map[string][]byte
	puts    []*awss3.PutObjectInput
}

func (f *fakeObjects) PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	b, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = b
	f.puts = append(f.puts, in)
	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeObjects) HeadObject(ctx context.Context, in *awss3.HeadObjectInput, opts ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound"}
	}
	return &awss3.HeadObjectOutput{}, nil
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeObjects{objects: map[string][]byte{}}
	s := &Store{log: logger.Nop(), cfg: Config{Bucket: "media", Endpoint: "minio:9000"}, api: fake}

	if err := s.Put(ctx, "images/a.png", []byte("png")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ct := aws.ToString(fake.puts[0].ContentType); ct != "image/png" {
		t.Fatalf("content type: want=image/png got=%s", ct)
	}
	ok, err := s.Exists(ctx, "images/a.png")
	if err != nil || !ok {
		t.Fatalf("Exists: want=true got=%v err=%v", ok, err)
	}
	got, err := s.Get(ctx, "images/a.png")
	if err != nil || string(got) != "png" {
		t.Fatalf("Get: got=%q err=%v", got, err)
	}
	ok, err = s.Exists(ctx, "images/missing.png")
	if err != nil || ok {
		t.Fatalf("Exists missing: want=false got=%v err=%v", ok, err)
	}
	if _, err := s.Get(ctx, "images/missing.png"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("Get missing: want ErrNotFound got=%v", err)
	}
}

func TestPublicURLAndEndpoint(t *testing.T) {
	s := &Store{cfg: Config{Bucket: "media", Endpoint: "minio:9000", UseSSL: false}}
	if got := s.PublicURL("/gifs/x.gif"); got != "http://minio:9000/media/gifs/x.gif" {
		t.Fatalf("PublicURL: got=%s", got)
	}
	s.cfg.PublicBaseURL = "https://cdn.example.com"
	if got := s.PublicURL("gifs/x.gif"); got != "https://cdn.example.com/gifs/x.gif" {
		t.Fatalf("PublicURL cdn: got=%s", got)
	}
	if ep := (Config{Endpoint: "https://r2.example.com"}).EndpointURL(); ep != "https://r2.example.com" {
		t.Fatalf("EndpointURL: got=%s", ep)
	}
}
