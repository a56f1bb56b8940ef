//go:build integration

package source

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/testutil"
)

func TestIntegration_S3(t *testing.T) {
	ctx := context.Background()
	client := testutil.SetupLocalStackS3(t, "chunked-source")

	data := testutil.NewTestDataGenerator(11).Bytes(256 * 1024)
	require.NoError(t, testutil.PutS3Object(ctx, client, "chunked-source", "big/object.bin", data))

	obj, err := S3(ctx, client, "chunked-source", "big/object.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), obj.Size())

	buf := make([]byte, 100*1024)
	n, err := obj.ReadAt(buf, 200*1024)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, data[200*1024:], buf[:n])
}

func TestIntegration_Minio(t *testing.T) {
	ctx := context.Background()
	core := testutil.SetupMinio(t, "chunked-source")

	data := testutil.NewTestDataGenerator(12).Bytes(256 * 1024)
	require.NoError(t, testutil.PutMinioObject(ctx, core, "chunked-source", "big/object.bin", data))

	obj, err := Minio(ctx, core, "chunked-source", "big/object.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), obj.Size())

	buf := make([]byte, 64*1024)
	n, err := obj.ReadAt(buf, 64*1024)
	require.NoError(t, err)
	assert.Equal(t, data[64*1024:128*1024], buf[:n])
}
