package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PaymentProofBucket holds uploaded payment evidence, namespaced by order id.
const PaymentProofBucket = "payment-proofs"

const paymentProofURLExpiry = 7 * 24 * time.Hour

type StorageService interface {
	UploadPaymentProof(ctx context.Context, orderID uuid.UUID, filename, contentType string, reader io.Reader, size int64) (string, error)
	RemovePaymentProof(ctx context.Context, orderID uuid.UUID, filename string) error
	EnsureBucketExists(ctx context.Context) error
	Ping(ctx context.Context) error
}

type minioStorage struct {
	client *minio.Client
}

func NewMinioStorageService(endpoint, accessKey, secretKey string, useSSL bool) (StorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioStorage{client: client}, nil
}

func paymentProofObjectName(orderID uuid.UUID, filename string) string {
	return fmt.Sprintf("orders/%s/%s", orderID.String(), filename)
}

// UploadPaymentProof stores the proof image and returns a presigned URL to be
// written onto the order record.
func (m *minioStorage) UploadPaymentProof(ctx context.Context, orderID uuid.UUID, filename, contentType string, reader io.Reader, size int64) (string, error) {
	objectName := paymentProofObjectName(orderID, filename)
	_, err := m.client.PutObject(ctx, PaymentProofBucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}

	url, err := m.client.PresignedGetObject(ctx, PaymentProofBucket, objectName, paymentProofURLExpiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

func (m *minioStorage) RemovePaymentProof(ctx context.Context, orderID uuid.UUID, filename string) error {
	return m.client.RemoveObject(ctx, PaymentProofBucket, paymentProofObjectName(orderID, filename), minio.RemoveObjectOptions{})
}

func (m *minioStorage) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, PaymentProofBucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, PaymentProofBucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *minioStorage) Ping(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, PaymentProofBucket)
	return err
}
