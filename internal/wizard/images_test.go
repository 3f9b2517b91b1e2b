package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"tailoring-bot/pkg/api"
)

// gatedUploads lets a test decide when each upload call returns.
type gatedUploads struct {
	fakeOrders
	started chan string
	gates   map[string]chan api.UploadResponse
}

func newGatedUploads(names ...string) *gatedUploads {
	g := &gatedUploads{
		started: make(chan string, len(names)),
		gates:   make(map[string]chan api.UploadResponse),
	}
	for _, n := range names {
		g.gates[n] = make(chan api.UploadResponse, 1)
	}
	g.upload = func(img api.ImageUpload) (api.UploadResponse, error) {
		g.started <- img.FileName
		resp := <-g.gates[img.FileName]
		if resp.FileURL == "" {
			return api.UploadResponse{}, errors.New("upload rejected")
		}
		return resp, nil
	}
	return g
}

func photo(name string) api.ImageUpload {
	return api.ImageUpload{Type: api.ImageFrontView, FileName: name, ContentType: "image/jpeg", Content: []byte(name)}
}

func TestUploadLastSelectionWins(t *testing.T) {
	for _, order := range [][]string{{"first.jpg", "second.jpg"}, {"second.jpg", "first.jpg"}} {
		t.Run(order[0]+"_resolves_first", func(t *testing.T) {
			orders := newGatedUploads("first.jpg", "second.jpg")
			w := newWizard(t, CheckoutFlow(), orders, nil)

			errs := make(chan error, 2)
			go func() { errs <- w.SelectImage(context.Background(), photo("first.jpg")) }()
			require.Equal(t, "first.jpg", <-orders.started)
			go func() { errs <- w.SelectImage(context.Background(), photo("second.jpg")) }()
			require.Equal(t, "second.jpg", <-orders.started)

			require.Equal(t, ImageUploading, w.Image(api.ImageFrontView).Status)

			for _, name := range order {
				orders.gates[name] <- api.UploadResponse{Status: "success", FileURL: "/uploads/" + name}
				require.NoError(t, <-errs)
			}

			state := w.Image(api.ImageFrontView)
			require.Equal(t, ImageUploaded, state.Status)
			require.Equal(t, "/uploads/second.jpg", state.URL)
		})
	}
}

func TestSubmitLeavesOutSupersededUpload(t *testing.T) {
	orders := newGatedUploads("first.jpg", "second.jpg")
	w := newWizard(t, CheckoutFlow(), orders, nil)

	errs := make(chan error, 2)
	go func() { errs <- w.SelectImage(context.Background(), photo("first.jpg")) }()
	require.Equal(t, "first.jpg", <-orders.started)
	go func() { errs <- w.SelectImage(context.Background(), photo("second.jpg")) }()
	require.Equal(t, "second.jpg", <-orders.started)

	orders.gates["first.jpg"] <- api.UploadResponse{Status: "success", FileURL: "/uploads/first.jpg"}
	require.NoError(t, <-errs)
	require.Equal(t, ImageState{Status: ImageUploading}, w.Image(api.ImageFrontView))

	fillToLastDataStep(t, w)
	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)
	require.Nil(t, orders.submitted[0].Images)

	orders.gates["second.jpg"] <- api.UploadResponse{Status: "success", FileURL: "/uploads/second.jpg"}
	require.NoError(t, <-errs)
	require.Equal(t, "/uploads/second.jpg", w.Image(api.ImageFrontView).URL)
}

func TestUploadFailureRevertsSlot(t *testing.T) {
	orders := newGatedUploads("front.jpg")
	w := newWizard(t, CheckoutFlow(), orders, nil)

	errs := make(chan error, 1)
	go func() { errs <- w.SelectImage(context.Background(), photo("front.jpg")) }()
	<-orders.started
	orders.gates["front.jpg"] <- api.UploadResponse{}

	err := <-errs
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	require.Equal(t, api.ImageFrontView, uploadErr.Slot)
	require.Equal(t, ImageState{}, w.Image(api.ImageFrontView))
}

func TestUploadRejectsNonImages(t *testing.T) {
	w := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)

	err := w.SelectImage(context.Background(), api.ImageUpload{
		Type: api.ImageSideView, FileName: "notes.pdf", ContentType: "application/pdf", Content: []byte("%PDF"),
	})
	require.ErrorIs(t, err, ErrNotAnImage)

	err = w.SelectImage(context.Background(), api.ImageUpload{Type: "back_view", Content: []byte("x")})
	require.ErrorIs(t, err, ErrUnknownSlot)
}

func TestUploadedImagesReachPayload(t *testing.T) {
	orders := &fakeOrders{}
	w := newWizard(t, CheckoutFlow(), orders, nil)
	require.NoError(t, w.SelectImage(context.Background(), api.ImageUpload{
		Type: api.ImageSideView, FileName: "side.png", ContentType: "image/png", Content: []byte("png"),
	}))
	fillToLastDataStep(t, w)

	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)

	images := orders.submitted[0].Images
	require.NotNil(t, images)
	require.Equal(t, "/uploads/side.png", *images.SideView)
	require.Nil(t, images.FrontView)
	require.Nil(t, images.ReferenceFit)
}

func TestSnapshotRestore(t *testing.T) {
	orders := &fakeOrders{}
	w := newWizard(t, CheckoutFlow(), orders, nil)
	require.NoError(t, w.SelectImage(context.Background(), photo("front.jpg")))
	fillToLastDataStep(t, w)
	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)

	snap := w.Snapshot()
	require.Equal(t, "sub-123", snap.SubmissionID)
	require.Equal(t, "/uploads/front.jpg", snap.Images[api.ImageFrontView])

	restored, err := Restore(Options{Flow: CheckoutFlow(), Orders: orders}, snap)
	require.NoError(t, err)
	require.Equal(t, w.StepIndex(), restored.StepIndex())
	require.Equal(t, w.Form(), restored.Form())
	require.Equal(t, "sub-123", restored.SubmissionID())
	require.Equal(t, ImageUploaded, restored.Image(api.ImageFrontView).Status)

	require.NoError(t, restored.InitiatePayment(context.Background()))
	require.Equal(t, PhaseConfirmed, restored.Phase())
	require.Equal(t, snap.SessionToken, restored.Snapshot().SessionToken)

	_, err = Restore(Options{Flow: GarmentFlow(), Orders: orders}, snap)
	require.Error(t, err)
}

func TestRestoreWithoutSubmissionStaysOffPayment(t *testing.T) {
	snap := Snapshot{Flow: FlowCheckout, Step: 7}
	w, err := Restore(Options{Flow: CheckoutFlow(), Orders: &fakeOrders{}}, snap)
	require.NoError(t, err)
	require.Equal(t, 6, w.StepIndex())
	require.Equal(t, 1, w.Form().Order.Quantity)
}
