package zkp

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// VerificationKeyStore persists one verification key per proof kind,
// generalizing the teacher's AWS/LocalStack session (pkg/observability) to
// back object storage for something other than log/metric export: the
// circuit verification keys a real snarkjs/gnark backend would publish
// alongside its proving key.
type VerificationKeyStore interface {
	Get(kind Kind) (key []byte, ok bool, err error)
	Put(kind Kind, key []byte) error
}

// InMemoryKeyStore is the default, zero-configuration VerificationKeyStore.
type InMemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[Kind][]byte
}

// NewInMemoryKeyStore builds an empty in-memory key store.
func NewInMemoryKeyStore() *InMemoryKeyStore {
	return &InMemoryKeyStore{keys: make(map[Kind][]byte)}
}

func (s *InMemoryKeyStore) Get(kind Kind) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[kind]
	return k, ok, nil
}

func (s *InMemoryKeyStore) Put(kind Kind, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[kind] = key
	return nil
}

// S3KeyStore backs verification keys with an S3 (or LocalStack) bucket, one
// object per kind, the way a real deployment would publish verification
// keys alongside the circuits they belong to rather than hold them only in
// coordinator memory.
type S3KeyStore struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3KeyStore builds an S3KeyStore over sess (as returned by
// pkg/observability's Manager.AWSSession), storing each kind's key at
// prefix+"/"+kind+".key" in bucket.
func NewS3KeyStore(sess *session.Session, bucket, prefix string) *S3KeyStore {
	return &S3KeyStore{client: s3.New(sess), bucket: bucket, prefix: prefix}
}

func (s *S3KeyStore) objectKey(kind Kind) string {
	return fmt.Sprintf("%s/%s.key", s.prefix, kind)
}

func (s *S3KeyStore) Get(kind Kind) ([]byte, bool, error) {
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(kind)),
	})
	if err != nil {
		if awsErrCode(err) == s3.ErrCodeNoSuchKey {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("zkp: s3 get verification key failed: %w", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("zkp: s3 read verification key body failed: %w", err)
	}
	return data, true, nil
}

func (s *S3KeyStore) Put(kind Kind, key []byte) error {
	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(kind)),
		Body:   bytes.NewReader(key),
	})
	if err != nil {
		return fmt.Errorf("zkp: s3 put verification key failed: %w", err)
	}
	return nil
}

// awsErrCode extracts an AWS error's code without importing the full
// awserr package surface into the happy path.
func awsErrCode(err error) string {
	type codeErr interface{ Code() string }
	if ce, ok := err.(codeErr); ok {
		return ce.Code()
	}
	return ""
}
