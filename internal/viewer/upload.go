package viewer

import (
	"context"
	"fmt"
	"path"

	"studytutor/internal/knowledge"
	"studytutor/internal/vision"
)

// Upload stores the files and registers a handoff for the next Mount.
// Only PDFs and images are accepted.
func (s *Service) Upload(ctx context.Context, files []knowledge.File) (Handoff, error) {
	if len(files) == 0 {
		return Handoff{}, ErrNoFiles
	}
	for _, f := range files {
		if !vision.Supported(f.MIMEType) {
			return Handoff{}, fmt.Errorf("%s: %w", f.Name, vision.ErrUnsupportedType)
		}
	}

	id := s.cfg.Handoffs.NewID()
	refs := make([]FileRef, 0, len(files))
	for i, f := range files {
		key := fmt.Sprintf("%03d-%s", i, path.Base(f.Name))
		if err := s.cfg.Uploads.Put(ctx, id, key, f.Data, f.MIMEType); err != nil {
			_ = s.cfg.Uploads.DeleteAll(ctx, id)
			return Handoff{}, fmt.Errorf("store %s: %w", f.Name, err)
		}
		refs = append(refs, FileRef{Name: f.Name, MIMEType: f.MIMEType, Size: int64(len(f.Data)), Key: key})
	}
	h := s.cfg.Handoffs.Put(id, refs)
	s.log.Info().Str("handoff_id", id).Int("files", len(refs)).Msg("files uploaded")
	return h, nil
}
