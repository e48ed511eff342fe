package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"proposalhub/pkg/domain"
)

// maxConcurrentReads bounds AttachAll's parallel payload reads.
const maxConcurrentReads = 4

// Files is the attachment repository.
type Files struct {
	svc *Service
}

// FileUpload describes an attachment whose payload is read from Body.
type FileUpload struct {
	Name     string
	MimeType string
	Body     io.Reader
}

// Attach reads the upload to completion and then stores the file record. The
// record is never visible before its payload is fully read and persisted.
func (r *Files) Attach(ctx context.Context, proposalID int64, upload FileUpload) (domain.ProposalFile, error) {
	file, err := readUpload(ctx, proposalID, upload)
	if err != nil {
		return domain.ProposalFile{}, err
	}
	var created domain.ProposalFile
	_, err = r.svc.run(ctx, "files.attach", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateFile(file)
		return err
	})
	return created, err
}

// AttachAll reads several uploads concurrently and stores them in one
// transaction, in input order. Any read failure stores nothing.
func (r *Files) AttachAll(ctx context.Context, proposalID int64, uploads []FileUpload) ([]domain.ProposalFile, error) {
	files := make([]domain.ProposalFile, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, upload := range uploads {
		g.Go(func() error {
			file, err := readUpload(gctx, proposalID, upload)
			if err != nil {
				return err
			}
			files[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	created := make([]domain.ProposalFile, 0, len(files))
	_, err := r.svc.run(ctx, "files.attach_all", func(tx domain.Transaction) error {
		for _, f := range files {
			stored, err := tx.CreateFile(f)
			if err != nil {
				return err
			}
			created = append(created, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func readUpload(ctx context.Context, proposalID int64, upload FileUpload) (domain.ProposalFile, error) {
	name := strings.TrimSpace(upload.Name)
	if name == "" {
		return domain.ProposalFile{}, errors.New("file name required")
	}
	if upload.Body == nil {
		return domain.ProposalFile{}, fmt.Errorf("file %s: no body", name)
	}
	if err := ctx.Err(); err != nil {
		return domain.ProposalFile{}, err
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return domain.ProposalFile{}, fmt.Errorf("read file %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.ProposalFile{}, err
	}
	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return domain.ProposalFile{
		ProposalID: proposalID,
		Name:       name,
		MimeType:   mimeType,
		Size:       int64(len(data)),
		Payload:    base64.StdEncoding.EncodeToString(data),
	}, nil
}

// List returns the files attached to a proposal.
func (r *Files) List(ctx context.Context, proposalID int64) ([]domain.ProposalFile, error) {
	var out []domain.ProposalFile
	err := r.svc.view(ctx, "files.list", func(v domain.TransactionView) error {
		out = v.ListFiles(proposalID)
		return nil
	})
	return out, err
}

// Get retrieves a file record by id.
func (r *Files) Get(ctx context.Context, id int64) (domain.ProposalFile, bool, error) {
	var (
		file domain.ProposalFile
		ok   bool
	)
	err := r.svc.view(ctx, "files.get", func(v domain.TransactionView) error {
		file, ok = v.FindFile(id)
		return nil
	})
	return file, ok, err
}

// Payload returns the decoded content of a file.
func (r *Files) Payload(ctx context.Context, id int64) ([]byte, bool, error) {
	file, ok, err := r.Get(ctx, id)
	if err != nil || !ok {
		return nil, ok, err
	}
	data, err := base64.StdEncoding.DecodeString(file.Payload)
	if err != nil {
		return nil, true, fmt.Errorf("decode file %d: %w", id, err)
	}
	return data, true, nil
}

// Update renames a file. Payloads are immutable.
func (r *Files) Update(ctx context.Context, id int64, up domain.FileUpdate) (domain.ProposalFile, bool, error) {
	var updated domain.ProposalFile
	_, err := r.svc.run(ctx, "files.update", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateFile(id, func(f *domain.ProposalFile) error {
			up.Apply(f)
			if strings.TrimSpace(f.Name) == "" {
				return errors.New("file name required")
			}
			return nil
		})
		return err
	})
	return found(updated, err)
}

// Delete removes a file.
func (r *Files) Delete(ctx context.Context, id int64) (bool, error) {
	_, err := r.svc.run(ctx, "files.delete", func(tx domain.Transaction) error {
		return tx.DeleteFile(id)
	})
	return deleted(err)
}
