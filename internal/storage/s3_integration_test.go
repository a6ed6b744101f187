//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/handoff/internal/domain"
	"github.com/lumenlabs/handoff/internal/testutil"
)

func TestS3ClientIntegration_ArchiveLifecycle(t *testing.T) {
	ctx := context.Background()

	s3Container := testutil.NewRustFSContainer(ctx, t)
	defer s3Container.Terminate(ctx)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        s3Container.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-archive",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))

	item := func(orgID, id string) *domain.SanitizedItem {
		return &domain.SanitizedItem{
			SourceItemID: id,
			OrgID:        orgID,
			SourceType:   domain.SourceTypeNote,
			Content:      "deploy checklist lives in the release repo",
			Report: domain.RedactionReport{
				Entries: []domain.RedactionEntry{{Class: "email", Count: 1}},
			},
			CreatedAt: time.Now().UTC(),
		}
	}

	t.Run("ArchiveItem writes under the org prefix", func(t *testing.T) {
		require.NoError(t, client.ArchiveItem(ctx, item("org-a", "item-1")))
		require.NoError(t, client.ArchiveItem(ctx, item("org-a", "item-2")))
		require.NoError(t, client.ArchiveItem(ctx, item("org-b", "item-3")))

		keys, err := client.ListOrgArchive(ctx, "org-a")
		require.NoError(t, err)
		assert.Len(t, keys, 2)
	})

	t.Run("DeleteOrgArchive removes only that org", func(t *testing.T) {
		require.NoError(t, client.DeleteOrgArchive(ctx, "org-a"))

		keys, err := client.ListOrgArchive(ctx, "org-a")
		require.NoError(t, err)
		assert.Empty(t, keys)

		other, err := client.ListOrgArchive(ctx, "org-b")
		require.NoError(t, err)
		assert.Len(t, other, 1)
	})

	t.Run("DeleteOrgArchive on empty prefix is a no-op", func(t *testing.T) {
		require.NoError(t, client.DeleteOrgArchive(ctx, "org-a"))
	})
}
