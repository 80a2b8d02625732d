package kms

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/aws/aws-sdk-go-v2/aws"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/awnumar/memguard"

	"github.com/systmms/vitaminc/internal/metrics"
	"github.com/systmms/vitaminc/pkg/protected"
)

// MacSize is the set of tag sizes KMS can produce.
type MacSize interface {
	~[28]byte | ~[32]byte | ~[48]byte | ~[64]byte
}

// Info is non-sensitive context mixed into the MAC input, such as a
// record identifier.
type Info string

// Error reports a failed KMS call.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("kms %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// HMAC accumulates input and asks KMS for a tag of size A.
type HMAC[A MacSize] struct {
	client Client
	keyID  string
	input  *protected.Protected[[]byte]
}

// NewHMAC returns an empty MAC computation under the KMS key keyID.
func NewHMAC[A MacSize](client Client, keyID string) *HMAC[A] {
	return &HMAC[A]{
		client: client,
		keyID:  keyID,
		input:  protected.New([]byte{}),
	}
}

// Algorithm returns the KMS algorithm for A.
func Algorithm[A MacSize]() types.MacAlgorithmSpec {
	var a A
	switch unsafe.Sizeof(a) {
	case 28:
		return types.MacAlgorithmSpecHmacSha224
	case 32:
		return types.MacAlgorithmSpecHmacSha256
	case 48:
		return types.MacAlgorithmSpecHmacSha384
	default:
		return types.MacAlgorithmSpecHmacSha512
	}
}

// Update appends the bytes of data. data is not consumed.
func (h *HMAC[A]) Update(data protected.ByteSource) *HMAC[A] {
	protected.AppendBytes(h.input, data)
	return h
}

// Consume appends the bytes of data and closes it.
func (h *HMAC[A]) Consume(data protected.Controlled[[]byte]) *HMAC[A] {
	protected.AppendBytes(h.input, data)
	_ = data.Close()
	return h
}

// UpdateInfo appends non-sensitive context.
func (h *HMAC[A]) UpdateInfo(info Info) *HMAC[A] {
	src := protected.New(string(info))
	protected.AppendBytes(h.input, src)
	_ = src.Close()
	return h
}

// Chain applies each update in order. It reads better than nesting when
// the parts come from a slice.
func (h *HMAC[A]) Chain(parts ...protected.ByteSource) *HMAC[A] {
	for _, p := range parts {
		h.Update(p)
	}
	return h
}

// FinalizeFixed requests the tag and wipes the accumulated input. The
// HMAC cannot be used afterwards.
func (h *HMAC[A]) FinalizeFixed(ctx context.Context) (*protected.Protected[A], error) {
	defer h.Close()
	return h.generate(ctx)
}

// FinalizeReset requests the tag and clears the input for reuse. The
// input is kept on failure.
func (h *HMAC[A]) FinalizeReset(ctx context.Context) (*protected.Protected[A], error) {
	tag, err := h.generate(ctx)
	if err != nil {
		return nil, err
	}
	h.input.Update(func(b *[]byte) {
		memguard.WipeBytes(*b)
		*b = (*b)[:0]
	})
	return tag, nil
}

// FinalizeScoped is FinalizeFixed with the tag restricted to scope S.
func FinalizeScoped[S protected.Scope, A MacSize](ctx context.Context, h *HMAC[A]) (*protected.Usage[A, S], error) {
	tag, err := h.FinalizeFixed(ctx)
	if err != nil {
		return nil, err
	}
	return protected.NewUsage[S](protected.Controlled[A](tag)), nil
}

// Verify asks KMS whether tag matches the accumulated input. The input is
// kept. An invalid tag is reported as false with a nil error.
func (h *HMAC[A]) Verify(ctx context.Context, tag protected.Controlled[A]) (bool, error) {
	start := time.Now()
	var (
		out *awskms.VerifyMacOutput
		err error
	)
	protected.UpdateWithRef(h.input, tag, func(msg *[]byte, t *A) {
		out, err = h.client.VerifyMac(ctx, &awskms.VerifyMacInput{
			KeyId:        aws.String(h.keyID),
			MacAlgorithm: Algorithm[A](),
			Message:      *msg,
			Mac:          unsafe.Slice((*byte)(unsafe.Pointer(t)), unsafe.Sizeof(*t)),
		})
	})

	var invalid *types.KMSInvalidMacException
	if errors.As(err, &invalid) {
		metrics.RecordKMSRequest("VerifyMac", start, nil)
		return false, nil
	}
	metrics.RecordKMSRequest("VerifyMac", start, err)
	if err != nil {
		return false, &Error{Op: "VerifyMac", Err: err}
	}
	return out.MacValid, nil
}

// Close wipes the accumulated input.
func (h *HMAC[A]) Close() error {
	return h.input.Close()
}

func (h *HMAC[A]) generate(ctx context.Context) (*protected.Protected[A], error) {
	start := time.Now()
	var (
		out *awskms.GenerateMacOutput
		err error
	)
	h.input.Update(func(msg *[]byte) {
		out, err = h.client.GenerateMac(ctx, &awskms.GenerateMacInput{
			KeyId:        aws.String(h.keyID),
			MacAlgorithm: Algorithm[A](),
			Message:      *msg,
		})
	})
	metrics.RecordKMSRequest("GenerateMac", start, err)
	if err != nil {
		return nil, &Error{Op: "GenerateMac", Err: err}
	}

	tag, err := protected.FromDigest[A](out.Mac)
	if err != nil {
		return nil, &Error{Op: "GenerateMac", Err: err}
	}
	return tag, nil
}
