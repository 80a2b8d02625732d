package kms_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/vitaminc/internal/metrics"
	"github.com/systmms/vitaminc/pkg/kms"
	"github.com/systmms/vitaminc/pkg/protected"
	"github.com/systmms/vitaminc/tests/fakes"
)

const keyID = "alias/test-hmac"

var hmacKey = []byte("0123456789abcdef0123456789abcdef")

func reference(h func() hash.Hash, msg []byte) []byte {
	m := hmac.New(h, hmacKey)
	m.Write(msg)
	return m.Sum(nil)
}

type tagScope struct{}

func (tagScope) ScopeName() string { return "account-tag" }

func TestHMAC_InputAccumulation(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeKMSClient(keyID, hmacKey)
	_, err := kms.NewHMAC[[32]byte](fake, keyID).
		Update(protected.New([]byte{0, 1})).
		Update(protected.New([]byte{2, 3})).
		UpdateInfo("test").
		FinalizeFixed(context.Background())
	require.NoError(t, err)

	require.Len(t, fake.Messages, 1)
	assert.Equal(t, []byte{0, 1, 2, 3, 116, 101, 115, 116}, fake.Messages[0])
}

func TestHMAC_UpdateBorrowsConsumeCloses(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeKMSClient(keyID, hmacKey)
	kept := protected.New([]byte("kept"))
	taken := protected.New([]byte("taken"))
	_, err := kms.NewHMAC[[32]byte](fake, keyID).
		Update(kept).
		Consume(taken).
		Chain(protected.New([2]byte{'!', '!'}), protected.New("?")).
		FinalizeFixed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []byte("kepttaken!!?"), fake.Messages[0])
	assert.Equal(t, []byte("kept"), kept.RiskyUnwrap())
	assert.Panics(t, func() { taken.RiskyUnwrap() })
}

func TestHMAC_Algorithms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	msg := []byte("account-42")
	fake := fakes.NewFakeKMSClient(keyID, hmacKey)

	tag224, err := kms.NewHMAC[[28]byte](fake, keyID).Update(protected.New([]byte("account-42"))).FinalizeFixed(ctx)
	require.NoError(t, err)
	tag256, err := kms.NewHMAC[[32]byte](fake, keyID).Update(protected.New([]byte("account-42"))).FinalizeFixed(ctx)
	require.NoError(t, err)
	tag384, err := kms.NewHMAC[[48]byte](fake, keyID).Update(protected.New([]byte("account-42"))).FinalizeFixed(ctx)
	require.NoError(t, err)
	tag512, err := kms.NewHMAC[[64]byte](fake, keyID).Update(protected.New([]byte("account-42"))).FinalizeFixed(ctx)
	require.NoError(t, err)

	got224, got256, got384, got512 := tag224.RiskyUnwrap(), tag256.RiskyUnwrap(), tag384.RiskyUnwrap(), tag512.RiskyUnwrap()
	assert.Equal(t, reference(sha256.New224, msg), got224[:])
	assert.Equal(t, reference(sha256.New, msg), got256[:])
	assert.Equal(t, reference(sha512.New384, msg), got384[:])
	assert.Equal(t, reference(sha512.New, msg), got512[:])

	assert.Equal(t, []types.MacAlgorithmSpec{
		types.MacAlgorithmSpecHmacSha224,
		types.MacAlgorithmSpecHmacSha256,
		types.MacAlgorithmSpecHmacSha384,
		types.MacAlgorithmSpecHmacSha512,
	}, fake.Algorithms)
}

func TestHMAC_FinalizeReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeKMSClient(keyID, hmacKey)
	h := kms.NewHMAC[[32]byte](fake, keyID)
	defer h.Close()

	first, err := h.UpdateInfo("one").FinalizeReset(ctx)
	require.NoError(t, err)
	second, err := h.UpdateInfo("two").FinalizeReset(ctx)
	require.NoError(t, err)

	assert.Equal(t, [][]byte{[]byte("one"), []byte("two")}, fake.Messages)
	a, b := first.RiskyUnwrap(), second.RiskyUnwrap()
	assert.Equal(t, reference(sha256.New, []byte("one")), a[:])
	assert.Equal(t, reference(sha256.New, []byte("two")), b[:])
}

func TestHMAC_FinalizeFixedConsumes(t *testing.T) {
	t.Parallel()

	h := kms.NewHMAC[[32]byte](fakes.NewFakeKMSClient(keyID, hmacKey), keyID)
	_, err := h.UpdateInfo("x").FinalizeFixed(context.Background())
	require.NoError(t, err)
	assert.Panics(t, func() { h.UpdateInfo("again") })
}

func TestHMAC_Verify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeKMSClient(keyID, hmacKey)
	h := kms.NewHMAC[[32]byte](fake, keyID).UpdateInfo("record-7")
	defer h.Close()

	tag, err := h.FinalizeReset(ctx)
	require.NoError(t, err)
	h.UpdateInfo("record-7")

	ok, err := h.Verify(ctx, tag)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, protected.New([32]byte{1}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFinalizeScoped(t *testing.T) {
	t.Parallel()

	h := kms.NewHMAC[[32]byte](fakes.NewFakeKMSClient(keyID, hmacKey), keyID).UpdateInfo("scoped")
	tag, err := kms.FinalizeScoped[tagScope](context.Background(), h)
	require.NoError(t, err)

	var _ protected.Acceptable[tagScope, [32]byte] = tag
	assert.Equal(t, "Usage[account-tag](Protected[[32]uint8]{ ... })", tag.String())
}

func TestHMAC_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	fake := fakes.NewFakeKMSClient(keyID, hmacKey)
	fake.Err = errors.New("throttled")
	_, err := kms.NewHMAC[[32]byte](fake, keyID).UpdateInfo("x").FinalizeFixed(ctx)
	var kmsErr *kms.Error
	require.ErrorAs(t, err, &kmsErr)
	assert.Equal(t, "GenerateMac", kmsErr.Op)
	assert.EqualError(t, err, "kms GenerateMac: throttled")

	_, err = kms.NewHMAC[[32]byte](fakes.NewFakeKMSClient(keyID, hmacKey), "alias/missing").UpdateInfo("x").FinalizeFixed(ctx)
	var notFound *types.NotFoundException
	assert.ErrorAs(t, err, &notFound)

	short := fakes.NewFakeKMSClient(keyID, hmacKey)
	short.TruncateMac = 16
	_, err = kms.NewHMAC[[32]byte](short, keyID).UpdateInfo("x").FinalizeFixed(ctx)
	assert.ErrorIs(t, err, protected.ErrLength)

	_, err = kms.NewHMAC[[32]byte](fake, keyID).UpdateInfo("x").Verify(ctx, protected.New([32]byte{}))
	assert.ErrorAs(t, err, &kmsErr)
	assert.Equal(t, "VerifyMac", kmsErr.Op)
}

func TestHMAC_RecordsMetrics(t *testing.T) {
	metrics.InitMetrics()
	counter := metrics.KMSRequestsTotal().WithLabelValues("GenerateMac", metrics.StatusSuccess)
	before := testutil.ToFloat64(counter)

	_, err := kms.NewHMAC[[32]byte](fakes.NewFakeKMSClient(keyID, hmacKey), keyID).UpdateInfo("m").FinalizeFixed(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, testutil.ToFloat64(counter), before+1)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	client, err := kms.NewClient(context.Background(), kms.Config{
		Region:          "eu-west-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", client.Options().Region)
	assert.Equal(t, "http://localhost:4566", *client.Options().BaseEndpoint)
}
