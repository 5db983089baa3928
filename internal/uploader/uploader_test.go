package uploader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"habilitaciones/internal/logging"
	"habilitaciones/internal/storage"
	storeMocks "habilitaciones/internal/storage/mocks"
)

func TestCategory(t *testing.T) {
	tests := map[string]string{
		"dni-upload":                    "DNI",
		"estatuto-upload":               "Estatuto",
		"acta-upload":                   "Otro",
		"documento-propiedad-upload":    "Propiedad",
		"documentos-inscripcion-upload": "Inscripcion",
		"":                              "Otro",
	}
	for slot, want := range tests {
		assert.Equal(t, want, Category(slot), slot)
	}
}

func TestRenamedName(t *testing.T) {
	assert.Equal(t, "DNI_frente.jpg", RenamedName("dni-upload", "frente.jpg"))
	assert.Equal(t, "Propiedad_escritura.pdf", RenamedName("documento-propiedad-upload", `C:\docs\escritura.pdf`))
	assert.Equal(t, "Otro_acta.pdf", RenamedName("acta-upload", "../../acta.pdf"))
	assert.Equal(t, "files/DNI_frente.jpg", ObjectKey("DNI_frente.jpg"))
}

func TestUploader_URLFor(t *testing.T) {
	u := New(nil, "https://tramites.example.org/", logging.Nop(), nil)
	assert.Equal(t, "https://tramites.example.org/files/DNI_mi%20dni.jpg", u.URLFor("DNI_mi dni.jpg"))
}

func TestUploader_Start_Success(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	body := strings.NewReader("0123456789")

	mStore.On("Put", mock.Anything, "files/DNI_frente.jpg", body, mock.MatchedBy(func(o storage.PutObjectOptions) bool {
		return o.Size == 10 && o.ContentType == "image/jpeg" && o.Progress != nil && o.Metadata[uploadIDMeta] != ""
	})).Return(func(_ context.Context, key string, r io.Reader, o storage.PutObjectOptions) storage.ObjectInfo {
		_, _ = o.Progress.Read(make([]byte, 5))
		return storage.ObjectInfo{Key: key, Size: 10}
	}, nil)

	u := New(mStore, "http://host", logging.Nop(), nil)
	task, err := u.Start(ctx, "dni-upload", "frente.jpg", body, 10, "image/jpeg")
	require.NoError(t, err)

	var seen []int
	for p := range task.Progress() {
		seen = append(seen, p)
	}
	require.NoError(t, task.Wait(ctx))

	assert.Equal(t, []int{50, 100}, seen)
	assert.Equal(t, 100, task.Percent())
	assert.Equal(t, "files/DNI_frente.jpg", task.Key)
	assert.Equal(t, "http://host/files/DNI_frente.jpg", task.URL())
	assert.True(t, task.Finished())
	assert.Equal(t, "DNI", task.Category)
	mStore.AssertExpectations(t)
}

func TestUploader_Start_Failure(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mStore.On("Put", mock.Anything, "files/Otro_acta.pdf", mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("bucket unavailable"))

	var logs bytes.Buffer
	u := New(mStore, "http://host", logging.New(&logs, time.UTC), nil)
	task, err := u.Start(ctx, "acta-upload", "acta.pdf", strings.NewReader("x"), 1, "application/pdf")
	require.NoError(t, err)

	err = task.Wait(ctx)
	assert.ErrorContains(t, err, "bucket unavailable")
	assert.Empty(t, task.URL())
	assert.NotEqual(t, 100, task.Percent())
	assert.Contains(t, logs.String(), `"component":"uploader"`)
}

func TestUploader_Start_Rejects(t *testing.T) {
	u := New(new(storeMocks.MockStorage), "http://host", logging.Nop(), nil)

	_, err := u.Start(context.Background(), "dni-upload", "big.jpg", strings.NewReader(""), MaxFileSize+1, "image/jpeg")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = u.Start(context.Background(), "dni-upload", " ", strings.NewReader(""), 1, "image/jpeg")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestTask_WaitHonoursContext(t *testing.T) {
	task := newTask("dni-upload", "a.jpg", "DNI_a.jpg", "DNI")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, task.Wait(ctx), context.Canceled)
	assert.False(t, task.Finished())

	task.finish("http://host/files/DNI_a.jpg", nil)
	task.finish("", errors.New("ignored"))
	assert.Equal(t, "http://host/files/DNI_a.jpg", task.URL())
	assert.NoError(t, task.Err())
}

func TestTask_ProgressIsMonotonic(t *testing.T) {
	task := newTask("dni-upload", "a.jpg", "DNI_a.jpg", "DNI")
	task.report(40)
	task.report(20)
	assert.Equal(t, 40, task.Percent())
}

func TestUploader_RemoveKeepsObjectRewrittenByAnotherUpload(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	var writers []string
	mStore.On("Put", mock.Anything, "files/DNI_dni.pdf", mock.Anything, mock.Anything).
		Return(func(_ context.Context, key string, _ io.Reader, o storage.PutObjectOptions) storage.ObjectInfo {
			writers = append(writers, o.Metadata[uploadIDMeta])
			return storage.ObjectInfo{Key: key}
		}, nil).Twice()

	u := New(mStore, "http://host", logging.Nop(), nil)
	first, err := u.Start(ctx, "dni-upload", "dni.pdf", strings.NewReader("a"), 1, "application/pdf")
	require.NoError(t, err)
	require.NoError(t, first.Wait(ctx))
	second, err := u.Start(ctx, "dni-upload", "dni.pdf", strings.NewReader("b"), 1, "application/pdf")
	require.NoError(t, err)
	require.NoError(t, second.Wait(ctx))
	require.Equal(t, []string{first.ID, second.ID}, writers)
	assert.Equal(t, first.Key, second.Key)

	// the backend reports metadata keys in canonical header form
	mStore.On("Stat", ctx, "files/DNI_dni.pdf").
		Return(storage.ObjectInfo{Key: "files/DNI_dni.pdf", Metadata: map[string]string{"Upload-Id": second.ID}}, nil)

	require.NoError(t, u.Remove(ctx, first.Key, first.ID))
	mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	mStore.On("Delete", ctx, "files/DNI_dni.pdf").Return(nil).Once()
	require.NoError(t, u.Remove(ctx, second.Key, second.ID))
	mStore.AssertExpectations(t)
}

func TestUploader_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("existing object is deleted", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Stat", ctx, "files/DNI_a.jpg").Return(storage.ObjectInfo{Key: "files/DNI_a.jpg"}, nil)
		mStore.On("Delete", ctx, "files/DNI_a.jpg").Return(nil)

		assert.NoError(t, New(mStore, "", logging.Nop(), nil).Remove(ctx, "files/DNI_a.jpg", ""))
		mStore.AssertExpectations(t)
	})

	t.Run("missing object counts as removed", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Stat", ctx, "files/DNI_a.jpg").Return(storage.ObjectInfo{}, storage.ErrObjectNotFound)

		assert.NoError(t, New(mStore, "", logging.Nop(), nil).Remove(ctx, "files/DNI_a.jpg", "u1"))
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("other failures are logged and returned", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Stat", ctx, "files/DNI_a.jpg").Return(storage.ObjectInfo{}, nil)
		mStore.On("Delete", ctx, "files/DNI_a.jpg").Return(errors.New("denied"))

		var logs bytes.Buffer
		err := New(mStore, "", logging.New(&logs, time.UTC), nil).Remove(ctx, "files/DNI_a.jpg", "")
		assert.EqualError(t, err, "denied")
		assert.Contains(t, logs.String(), `"step":"delete"`)
	})
}
