package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/contentapi"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/feed-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceFixture(t *testing.T, product *models.GoogleProduct) (*GoogleProductService, *syncFixture) {
	t.Helper()
	f := newSyncFixture(t, product)
	log, _ := newObservedLogger()
	return NewGoogleProductService(f.repo, f.client, newTestMapper(t), log), f
}

func TestStatusMessage_Add(t *testing.T) {
	tests := []struct {
		name  string
		steps []struct {
			kind  MessageKind
			value string
		}
		want StatusMessage
	}{
		{
			name: "two successes are joined",
			steps: []struct {
				kind  MessageKind
				value string
			}{{MessageSuccess, "saved"}, {MessageSuccess, "uploaded"}},
			want: StatusMessage{Success: "saved, uploaded"},
		},
		{
			name: "two errors are joined",
			steps: []struct {
				kind  MessageKind
				value string
			}{{MessageError, "bad input"}, {MessageError, "upload failed"}},
			want: StatusMessage{Error: "bad input, upload failed"},
		},
		{
			name: "success after error goes into the error slot",
			steps: []struct {
				kind  MessageKind
				value string
			}{{MessageError, "bad input"}, {MessageSuccess, "uploaded"}},
			want: StatusMessage{Error: "(Error) bad input ; (Success) uploaded"},
		},
		{
			name: "error after success absorbs it",
			steps: []struct {
				kind  MessageKind
				value string
			}{{MessageSuccess, "saved"}, {MessageError, "upload failed"}},
			want: StatusMessage{Error: "(Error) upload failed; (Success) saved"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg StatusMessage
			for _, step := range tt.steps {
				msg.Add(step.kind, step.value)
			}
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestGoogleProductService_GetView(t *testing.T) {
	product := widgetProduct(strPtr("online:en:US:WID-001"))
	service, _ := newServiceFixture(t, product)

	view, err := service.GetView(context.Background(), product.ID)
	require.NoError(t, err)

	assert.Equal(t, product.Variant, view.Variant)
	_, ok := view.Attributes.Get("offer_id")
	assert.True(t, ok, "view attributes use canonical names")

	var wire map[string]any
	require.NoError(t, json.Unmarshal(view.AttributesJSON, &wire))
	assert.Equal(t, "WID-001", wire["offerId"])
	assert.Equal(t,
		"https://google.com/merchants/view?merchantOfferId=WID-001&channel=0&country=US*language=en",
		view.MerchantCenterLink)
}

func TestGoogleProductService_GetView_NotFound(t *testing.T) {
	service, _ := newServiceFixture(t, widgetProduct(nil))

	_, err := service.GetView(context.Background(), 999)
	assert.ErrorIs(t, err, utils.ErrGoogleProductNotFound)
}

func TestGoogleProductService_UpdateAndUpload(t *testing.T) {
	autoUpdate := true

	t.Run("local update without upload", func(t *testing.T) {
		product := widgetProduct(nil)
		service, f := newServiceFixture(t, product)

		report, err := service.UpdateAndUpload(context.Background(), product.ID, models.LocalUpdate{
			AutoUpdate:         &autoUpdate,
			AttributeOverrides: map[string]string{"brand": "Acme"},
		}, false)
		require.NoError(t, err)

		assert.True(t, report.LocalSaved)
		assert.Nil(t, report.Upload)
		assert.Equal(t, StatusMessage{Success: msgLocalUpdated}, report.Status)
		assert.True(t, product.AutoUpdate)
		assert.Equal(t, "Acme", product.AttributeOverrides["brand"])
		assert.Empty(t, f.api.calls)
	})

	t.Run("local update and successful upload", func(t *testing.T) {
		product := widgetProduct(nil)
		service, f := newServiceFixture(t, product)

		report, err := service.UpdateAndUpload(context.Background(), product.ID, models.LocalUpdate{
			AttributeOverrides: map[string]string{"title": "Custom Widget"},
		}, true)
		require.NoError(t, err)

		require.Len(t, f.api.calls, 1)
		body, err := json.Marshal(f.api.calls[0].body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"title":"Custom Widget"`, "override is uploaded")

		assert.Equal(t, SyncStatusSuccess, report.Upload.Status)
		assert.Equal(t, StatusMessage{Success: msgLocalUpdated + ", " + msgUploaded}, report.Status)
	})

	t.Run("upload rejected by google", func(t *testing.T) {
		product := widgetProduct(nil)
		service, f := newServiceFixture(t, product)
		f.api.responses = []*contentapi.Response{response(400, validationBody)}

		report, err := service.UpdateAndUpload(context.Background(), product.ID, models.LocalUpdate{}, true)
		require.NoError(t, err)

		assert.True(t, report.LocalSaved)
		assert.Equal(t, StatusMessage{Error: "(Error) " + msgUploadFailed + "; (Success) " + msgLocalUpdated}, report.Status)
	})

	t.Run("invalid local update still uploads", func(t *testing.T) {
		product := widgetProduct(nil)
		service, f := newServiceFixture(t, product)

		report, err := service.UpdateAndUpload(context.Background(), product.ID, models.LocalUpdate{
			AttributeOverrides: map[string]string{"colour": "red", "flavour": "mint"},
		}, true)
		require.NoError(t, err)

		assert.False(t, report.LocalSaved)
		assert.Len(t, f.api.calls, 1)
		assert.Equal(t,
			"(Error) Unknown feed attributes: colour, flavour ; (Success) "+msgUploaded,
			report.Status.Error)
		assert.Empty(t, report.Status.Success)
		assert.Nil(t, product.AttributeOverrides)
	})

	t.Run("override values that do not fit the attribute type are rejected", func(t *testing.T) {
		product := widgetProduct(nil)
		service, f := newServiceFixture(t, product)

		report, err := service.UpdateAndUpload(context.Background(), product.ID, models.LocalUpdate{
			AutoUpdate:         &autoUpdate,
			AttributeOverrides: map[string]string{"price": "twelve", "adult": "maybe", "title": "Ok"},
		}, false)
		require.NoError(t, err)

		assert.False(t, report.LocalSaved)
		assert.Equal(t, StatusMessage{Error: "Invalid values for feed attributes: adult, price"}, report.Status)
		assert.Nil(t, product.AttributeOverrides)
		assert.False(t, product.AutoUpdate)
		assert.Empty(t, f.api.calls)
	})

	t.Run("typed override is uploaded with its wire type", func(t *testing.T) {
		product := widgetProduct(nil)
		service, f := newServiceFixture(t, product)

		_, err := service.UpdateAndUpload(context.Background(), product.ID, models.LocalUpdate{
			AttributeOverrides: map[string]string{"price": "12.50", "identifier_exists": "false"},
		}, true)
		require.NoError(t, err)

		require.Len(t, f.api.calls, 1)
		body, err := json.Marshal(f.api.calls[0].body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"price":12.5`)
		assert.Contains(t, string(body), `"identifierExists":false`)
	})

	t.Run("empty override value removes it", func(t *testing.T) {
		product := widgetProduct(nil)
		product.AttributeOverrides = map[string]string{"brand": "Acme", "color": "red"}
		service, _ := newServiceFixture(t, product)

		_, err := service.UpdateAndUpload(context.Background(), product.ID, models.LocalUpdate{
			AttributeOverrides: map[string]string{"brand": ""},
		}, false)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"color": "red"}, product.AttributeOverrides)
	})
}

func TestGoogleProductService_RemoteOperations(t *testing.T) {
	product := widgetProduct(nil)
	service, f := newServiceFixture(t, product)
	ctx := context.Background()

	fetched, err := service.Fetch(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncStatusSkipped, fetched.Status)

	deleted, err := service.DeleteRemote(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncStatusSkipped, deleted.Status)

	uploaded, err := service.Upload(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncStatusSuccess, uploaded.Status)
	assert.Len(t, f.api.calls, 1)

	_, err = service.Upload(ctx, 12345)
	assert.ErrorIs(t, err, utils.ErrGoogleProductNotFound)
}

func TestGoogleProductService_History(t *testing.T) {
	product := widgetProduct(strPtr("123"))
	service, _ := newServiceFixture(t, product)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.Fetch(ctx, product.ID)
		require.NoError(t, err)
	}

	page, err := service.History(ctx, product.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Pagination.TotalItems)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasPrev)

	_, err = service.History(ctx, 999, 1, 10)
	assert.ErrorIs(t, err, utils.ErrGoogleProductNotFound)
}

func TestGoogleProductService_EnsureForVariant(t *testing.T) {
	product := widgetProduct(nil)
	service, f := newServiceFixture(t, product)
	ctx := context.Background()

	existing, created, err := service.EnsureForVariant(ctx, product.VariantID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, product.ID, existing.ID)

	fresh, created, err := service.EnsureForVariant(ctx, 77)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(77), fresh.VariantID)
	assert.Contains(t, f.repo.products, fresh.ID)

	_, _, err = service.EnsureForVariant(ctx, 0)
	assert.ErrorIs(t, err, utils.ErrInvalidGoogleProductID)
}

func TestGoogleProductService_Status(t *testing.T) {
	service, _ := newServiceFixture(t, widgetProduct(nil))
	assert.ErrorIs(t, service.Status(context.Background(), 5), utils.ErrStatusNotImplemented)
}
