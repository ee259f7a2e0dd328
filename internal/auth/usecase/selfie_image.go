package usecase

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
)

//nolint:gochecknoglobals // global for fast reuse
var selfieContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

var errUnsupportedImage = errors.New("unsupported image encoding")

// normalizeSelfie accepts raw image bytes, base64 text or a base64 data URI
// and returns the decoded image with its sniffed content type.
func (s *Usecase) normalizeSelfie(img entity.SelfieImage) (entity.SelfieImage, error) {
	data, err := decodeSelfie(img.Data)
	if err != nil {
		return entity.SelfieImage{}, goerror.NewInvalidInput(nil, "image", errUnsupportedImage.Error())
	}
	if len(data) == 0 {
		return entity.SelfieImage{}, goerror.NewInvalidInput(nil, "image", "image is required")
	}

	if maxSize := s.selfieMaxSize(); int64(len(data)) > maxSize {
		return entity.SelfieImage{}, goerror.NewTooLarge(fmt.Sprintf("Image is larger than the %d bytes allowed.", maxSize))
	}

	contentType, ok := sniffSelfie(data)
	if !ok {
		return entity.SelfieImage{}, goerror.NewInvalidInput(nil, "image", errUnsupportedImage.Error())
	}

	return entity.SelfieImage{Data: data, ContentType: contentType}, nil
}

func decodeSelfie(raw []byte) ([]byte, error) {
	if _, ok := sniffSelfie(raw); ok {
		return raw, nil
	}

	text := bytes.TrimSpace(raw)
	if rest, ok := bytes.CutPrefix(text, []byte("data:")); ok {
		meta, payload, found := bytes.Cut(rest, []byte(","))
		if !found || !bytes.HasSuffix(meta, []byte(";base64")) {
			return nil, errUnsupportedImage
		}
		return decodeBase64(payload)
	}

	if data, err := decodeBase64(text); err == nil {
		return data, nil
	}

	// left to the sniffer to reject
	return raw, nil
}

func decodeBase64(b []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(b)))
	n, err := base64.StdEncoding.Decode(out, b)
	if err == nil {
		return out[:n], nil
	}

	out = make([]byte, base64.RawStdEncoding.DecodedLen(len(b)))
	n, err = base64.RawStdEncoding.Decode(out, b)
	if err != nil {
		return nil, errUnsupportedImage
	}
	return out[:n], nil
}

func sniffSelfie(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	contentType := http.DetectContentType(data)
	_, ok := selfieContentTypes[contentType]
	return contentType, ok
}
