package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	rows [][]string
	err  error
}

func (r *recordingSink) Append(_ context.Context, _ string, fields []string) error {
	r.rows = append(r.rows, fields)
	return r.err
}

func TestFanout(t *testing.T) {
	primary := &recordingSink{}
	broken := &recordingSink{err: errors.New("smtp down")}
	ok := &recordingSink{}

	f := NewFanout(primary, nil,
		Named{Name: "email", Sink: broken},
		Named{Name: "nil"},
		Named{Name: "s3", Sink: ok},
	)
	assert.Equal(t, 3, f.Len())

	require.NoError(t, f.Append(context.Background(), "Citas", []string{"a"}))
	assert.Len(t, primary.rows, 1)
	assert.Len(t, broken.rows, 1)
	assert.Len(t, ok.rows, 1)
}

func TestFanout_PrimaryErrorStillFansOut(t *testing.T) {
	primary := &recordingSink{err: errors.New("quota")}
	secondary := &recordingSink{}

	err := NewFanout(primary, nil, Named{Name: "s3", Sink: secondary}).Append(context.Background(), "AutoVenta", []string{"x"})
	assert.Error(t, err)
	assert.Len(t, secondary.rows, 1)
}

type mockS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.input = in
	m.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, m.err
}

func TestS3Archive(t *testing.T) {
	assert.Nil(t, NewS3Archive(&mockS3{}, "", ""))

	client := &mockS3{}
	a := NewS3Archive(client, "leads-bucket", "/leads/v1/")
	a.now = func() time.Time { return time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC) }

	require.NoError(t, a.Append(context.Background(), "AutoCompra", []string{"521", "comprar", "Jetta", "ts"}))

	assert.Equal(t, "leads-bucket", aws.ToString(client.input.Bucket))
	key := aws.ToString(client.input.Key)
	assert.True(t, strings.HasPrefix(key, "leads/v1/AutoCompra/2025/03/10/"), key)
	assert.True(t, strings.HasSuffix(key, ".json"))

	var rec LeadRecord
	require.NoError(t, json.Unmarshal(client.body, &rec))
	assert.Equal(t, "AutoCompra", rec.Destination)
	assert.Equal(t, []string{"521", "comprar", "Jetta", "ts"}, rec.Fields)
	assert.NotEmpty(t, rec.ID)
}

func TestS3Archive_Error(t *testing.T) {
	a := NewS3Archive(&mockS3{err: errors.New("access denied")}, "b", "")
	assert.Error(t, a.Append(context.Background(), "Citas", nil))
}
