package models

import "strings"

// DeprecatedURLMarker is the legacy local-serving URL shape images carried
// before the object-store migration. A URL containing it always refers to a
// file under the local fallback root, whatever host it names.
const DeprecatedURLMarker = "/uploads/"

// ImageRef is the explicit local/remote tag for an image's hosting. The
// original data carries no such field, so the tag is recovered from the
// descriptor: an absolute http(s) URL means the blob lives in the object
// store, a deprecated or relative URL means a file under the local
// fallback root.
type ImageRef interface {
	isImageRef()
}

// RemoteRef points at a durable object-store blob. Remote blobs are never
// deleted by this system.
type RemoteRef struct {
	URL string
}

// LocalRef points at a file under the local fallback root.
type LocalRef struct {
	Path string
}

func (RemoteRef) isImageRef() {}
func (LocalRef) isImageRef()  {}

// ParseImageRef classifies a single string by its shape: a URL scheme
// prefix means remote, anything else a local path.
func ParseImageRef(s string) ImageRef {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return RemoteRef{URL: s}
	}
	return LocalRef{Path: s}
}

// ClassifyImage tags an image's hosting from its descriptor fields.
// Object-store images keep a bare object key in filename and an absolute
// URL, so the URL decides; filename alone still decides for legacy
// descriptors that carry a full URL in the filename slot. A URL in the
// deprecated local-serving shape is always local, whatever its host.
func ClassifyImage(filename, url string) ImageRef {
	if strings.Contains(url, DeprecatedURLMarker) {
		return LocalRef{Path: filename}
	}
	if r, ok := ParseImageRef(url).(RemoteRef); ok {
		return r
	}
	if _, ok := ParseImageRef(filename).(RemoteRef); ok {
		if url == "" {
			url = filename
		}
		return RemoteRef{URL: url}
	}
	return LocalRef{Path: filename}
}
