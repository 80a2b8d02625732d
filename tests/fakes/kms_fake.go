package fakes

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// FakeKMSClient computes real HMACs with keys held in memory, so tags
// produced through it can be checked against crypto/hmac.
type FakeKMSClient struct {
	mu sync.Mutex
	// Keys maps key IDs to raw HMAC keys
	Keys map[string][]byte
	// Err, when set, is returned by every call
	Err error
	// Messages records every message sent to GenerateMac or VerifyMac
	Messages [][]byte
	// Algorithms records the algorithm of every call
	Algorithms []types.MacAlgorithmSpec
	// TruncateMac shortens generated tags, to simulate a bad response
	TruncateMac int
}

// NewFakeKMSClient creates a fake holding one key.
func NewFakeKMSClient(keyID string, key []byte) *FakeKMSClient {
	return &FakeKMSClient{Keys: map[string][]byte{keyID: key}}
}

func (f *FakeKMSClient) mac(keyID *string, alg types.MacAlgorithmSpec, msg []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = append(f.Messages, slices.Clone(msg))
	f.Algorithms = append(f.Algorithms, alg)
	if f.Err != nil {
		return nil, f.Err
	}

	key, ok := f.Keys[aws.ToString(keyID)]
	if !ok {
		return nil, &types.NotFoundException{Message: aws.String(fmt.Sprintf("key %q not found", aws.ToString(keyID)))}
	}
	var h func() hash.Hash
	switch alg {
	case types.MacAlgorithmSpecHmacSha224:
		h = sha256.New224
	case types.MacAlgorithmSpecHmacSha256:
		h = sha256.New
	case types.MacAlgorithmSpecHmacSha384:
		h = sha512.New384
	case types.MacAlgorithmSpecHmacSha512:
		h = sha512.New
	default:
		return nil, &types.InvalidKeyUsageException{Message: aws.String("unsupported algorithm")}
	}
	m := hmac.New(h, key)
	m.Write(msg)
	return m.Sum(nil), nil
}

// GenerateMac mocks the GenerateMac operation
func (f *FakeKMSClient) GenerateMac(ctx context.Context, params *kms.GenerateMacInput, optFns ...func(*kms.Options)) (*kms.GenerateMacOutput, error) {
	tag, err := f.mac(params.KeyId, params.MacAlgorithm, params.Message)
	if err != nil {
		return nil, err
	}
	if f.TruncateMac > 0 {
		tag = tag[:f.TruncateMac]
	}
	return &kms.GenerateMacOutput{
		KeyId:        params.KeyId,
		Mac:          tag,
		MacAlgorithm: params.MacAlgorithm,
	}, nil
}

// VerifyMac mocks the VerifyMac operation. Like the service, a mismatch
// is reported as KMSInvalidMacException.
func (f *FakeKMSClient) VerifyMac(ctx context.Context, params *kms.VerifyMacInput, optFns ...func(*kms.Options)) (*kms.VerifyMacOutput, error) {
	tag, err := f.mac(params.KeyId, params.MacAlgorithm, params.Message)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal(tag, params.Mac) {
		return nil, &types.KMSInvalidMacException{Message: aws.String("invalid mac")}
	}
	return &kms.VerifyMacOutput{KeyId: params.KeyId, MacValid: true, MacAlgorithm: params.MacAlgorithm}, nil
}
