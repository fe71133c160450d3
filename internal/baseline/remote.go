package baseline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// DefaultBlobName is the blob a mirror reads and writes when the
// caller does not pick one.
const DefaultBlobName = "baselines.json"

// Mirror copies baseline histories to and from an Azure Blob
// container so CI jobs on ephemeral hosts can share them.
type Mirror struct {
	client    *azblob.Client
	container string
}

func clientOptions() *azblob.ClientOptions {
	return &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Telemetry: policy.TelemetryOptions{ApplicationID: "plugvet"},
		},
	}
}

// NewMirror connects to the storage account at serviceURL using the
// ambient Azure credential chain (environment, workload identity,
// managed identity, CLI).
func NewMirror(serviceURL, container string) (*Mirror, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("build azure credential: %w", err)
	}
	client, err := azblob.NewClient(serviceURL, cred, clientOptions())
	if err != nil {
		return nil, fmt.Errorf("build blob client: %w", err)
	}
	return &Mirror{client: client, container: container}, nil
}

// NewMirrorFromConnectionString connects with an explicit storage
// connection string instead of the credential chain.
func NewMirrorFromConnectionString(connectionString, container string) (*Mirror, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, clientOptions())
	if err != nil {
		return nil, fmt.Errorf("build blob client: %w", err)
	}
	return &Mirror{client: client, container: container}, nil
}

// Push exports the store and uploads it as one JSON blob, creating
// the container on first use.
func (m *Mirror) Push(ctx context.Context, store Store, blobName string) error {
	if blobName == "" {
		blobName = DefaultBlobName
	}

	snap, err := Export(ctx, store)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if _, err := m.client.CreateContainer(ctx, m.container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return fmt.Errorf("create container %q: %w", m.container, err)
		}
	}
	if _, err := m.client.UploadStream(ctx, m.container, blobName, bytes.NewReader(raw), nil); err != nil {
		return fmt.Errorf("upload baseline snapshot: %w", err)
	}
	return nil
}

// Pull downloads the snapshot blob and replaces the local store's
// contents with it.
func (m *Mirror) Pull(ctx context.Context, store *SQLiteStore, blobName string) error {
	if blobName == "" {
		blobName = DefaultBlobName
	}

	resp, err := m.client.DownloadStream(ctx, m.container, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return fmt.Errorf("no baseline snapshot at %s/%s, push one first", m.container, blobName)
		}
		return fmt.Errorf("download baseline snapshot: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read baseline snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode baseline snapshot: %w", err)
	}
	return Import(ctx, store, &snap)
}
