package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"smartlife/client/internal/model"
	"smartlife/client/internal/repository"
)

const demoConspectus = `Frontend development is about creating the visual part of websites and web apps: everything users see and interact with.
The three main technologies are HTML, CSS, and JavaScript.
HTML gives the page its structure: headings, paragraphs, buttons, images.
CSS adds colors, spacing, and design to make pages look professional.
JavaScript brings interactivity: animations, popups, form validation, and more.

To start learning, focus on:
• Understanding HTML and semantic structure
• Mastering CSS with Flexbox and Grid
• Learning JavaScript basics: variables, loops, and DOM`

// NoteService manages conspectus docs and the folders they are filed in.
// Titles and folder names are unique without regard to case.
type NoteService struct {
	repo  *repository.NoteRepository
	newID func() string

	mu sync.Mutex
}

func NewNoteService(repo *repository.NoteRepository) *NoteService {
	return &NoteService{repo: repo, newID: shortID}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
}

// Seed writes the demo docs and folders into an empty store.
func (s *NoteService) Seed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed(ctx)
}

func (s *NoteService) seed(ctx context.Context) error {
	if _, ok, err := s.repo.Docs(ctx); err != nil {
		return err
	} else if !ok {
		docs := []model.Doc{
			{ID: s.newID(), Title: "Consp 1", Content: demoConspectus},
			{ID: s.newID(), Title: "Consp 2", Content: "Your second conspectus…"},
			{ID: s.newID(), Title: "Consp 3", Content: "Your third conspectus…"},
		}
		if err := s.repo.SaveDocs(ctx, docs); err != nil {
			return err
		}
	}
	if _, ok, err := s.repo.Folders(ctx); err != nil {
		return err
	} else if !ok {
		folders := []model.Folder{
			{ID: s.newID(), Name: "Folder 1"},
			{ID: s.newID(), Name: "Folder 2"},
		}
		if err := s.repo.SaveFolders(ctx, folders); err != nil {
			return err
		}
	}
	return nil
}

// ListDocs returns the docs in folderID, every doc when folderID is "*", and
// the unfiled docs when it is empty.
func (s *NoteService) ListDocs(ctx context.Context, folderID string) ([]model.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.docs(ctx)
	if err != nil {
		return nil, err
	}
	if folderID == "*" {
		return docs, nil
	}
	filtered := make([]model.Doc, 0, len(docs))
	for _, doc := range docs {
		if doc.FolderID == folderID {
			filtered = append(filtered, doc)
		}
	}
	return filtered, nil
}

func (s *NoteService) GetDoc(ctx context.Context, id string) (*model.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.docs(ctx)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.ID == id {
			found := doc
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// SaveDoc updates the doc with id, or creates one at the top of the list when
// id is empty or unknown. A colliding title gets a " (n)" suffix. folderID is
// applied only when it names an existing folder.
func (s *NoteService) SaveDoc(ctx context.Context, id, title, content, folderID string) (*model.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.docs(ctx)
	if err != nil {
		return nil, err
	}
	folders, err := s.folders(ctx)
	if err != nil {
		return nil, err
	}

	index := -1
	for i := range docs {
		if id != "" && docs[i].ID == id {
			index = i
			break
		}
	}

	taken := make([]string, 0, len(docs))
	for i, doc := range docs {
		if i != index {
			taken = append(taken, doc.Title)
		}
	}
	uniqueTitle := uniqueLabel(title, model.DefaultDocTitle, taken)

	var doc model.Doc
	if index >= 0 {
		docs[index].Title = uniqueTitle
		docs[index].Content = content
	} else {
		doc = model.Doc{ID: s.newID(), Title: uniqueTitle, Content: content}
		docs = append([]model.Doc{doc}, docs...)
		index = 0
	}
	if folderID != "" && hasFolder(folders, folderID) {
		docs[index].FolderID = folderID
	}

	if err := s.repo.SaveDocs(ctx, docs); err != nil {
		return nil, err
	}
	doc = docs[index]
	return &doc, nil
}

// DeleteDoc reports whether a doc was removed.
func (s *NoteService) DeleteDoc(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.docs(ctx)
	if err != nil {
		return false, err
	}
	kept := make([]model.Doc, 0, len(docs))
	for _, doc := range docs {
		if doc.ID != id {
			kept = append(kept, doc)
		}
	}
	if len(kept) == len(docs) {
		return false, nil
	}
	return true, s.repo.SaveDocs(ctx, kept)
}

// AssignDoc files a doc into folderID; an empty folderID unfiles it.
func (s *NoteService) AssignDoc(ctx context.Context, docID, folderID string) (*model.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.docs(ctx)
	if err != nil {
		return nil, err
	}
	if folderID != "" {
		folders, err := s.folders(ctx)
		if err != nil {
			return nil, err
		}
		if !hasFolder(folders, folderID) {
			return nil, fmt.Errorf("folder %s: %w", folderID, repository.ErrNotFound)
		}
	}
	for i := range docs {
		if docs[i].ID != docID {
			continue
		}
		docs[i].FolderID = folderID
		if err := s.repo.SaveDocs(ctx, docs); err != nil {
			return nil, err
		}
		doc := docs[i]
		return &doc, nil
	}
	return nil, fmt.Errorf("doc %s: %w", docID, repository.ErrNotFound)
}

func (s *NoteService) ListFolders(ctx context.Context) ([]model.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folders(ctx)
}

func (s *NoteService) CreateFolder(ctx context.Context, name string) (*model.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders, err := s.folders(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(folders))
	for _, folder := range folders {
		names = append(names, folder.Name)
	}
	folder := model.Folder{ID: s.newID(), Name: uniqueLabel(name, model.DefaultFolderName, names)}
	if err := s.repo.SaveFolders(ctx, append(folders, folder)); err != nil {
		return nil, err
	}
	return &folder, nil
}

// DeleteFolder removes the folder and every doc filed in it. It returns how
// many docs went with it.
func (s *NoteService) DeleteFolder(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders, err := s.folders(ctx)
	if err != nil {
		return 0, err
	}
	if !hasFolder(folders, id) {
		return 0, fmt.Errorf("folder %s: %w", id, repository.ErrNotFound)
	}
	keptFolders := make([]model.Folder, 0, len(folders))
	for _, folder := range folders {
		if folder.ID != id {
			keptFolders = append(keptFolders, folder)
		}
	}

	docs, err := s.docs(ctx)
	if err != nil {
		return 0, err
	}
	keptDocs := make([]model.Doc, 0, len(docs))
	for _, doc := range docs {
		if doc.FolderID != id {
			keptDocs = append(keptDocs, doc)
		}
	}

	if err := s.repo.SaveFolders(ctx, keptFolders); err != nil {
		return 0, err
	}
	if err := s.repo.SaveDocs(ctx, keptDocs); err != nil {
		return 0, err
	}
	return len(docs) - len(keptDocs), nil
}

func (s *NoteService) Zoom(ctx context.Context) (float64, error) {
	return s.repo.Zoom(ctx)
}

// SetZoom stores the editor zoom clamped to its allowed range.
func (s *NoteService) SetZoom(ctx context.Context, value float64) (float64, error) {
	return s.repo.SaveZoom(ctx, value)
}

func (s *NoteService) docs(ctx context.Context) ([]model.Doc, error) {
	if err := s.seed(ctx); err != nil {
		return nil, err
	}
	docs, _, err := s.repo.Docs(ctx)
	return docs, err
}

func (s *NoteService) folders(ctx context.Context) ([]model.Folder, error) {
	if err := s.seed(ctx); err != nil {
		return nil, err
	}
	folders, _, err := s.repo.Folders(ctx)
	return folders, err
}

func hasFolder(folders []model.Folder, id string) bool {
	for _, folder := range folders {
		if folder.ID == id {
			return true
		}
	}
	return false
}

// uniqueLabel trims label, substitutes fallback when blank and appends
// " (2)", " (3)"... until it matches none of taken, ignoring case.
func uniqueLabel(label, fallback string, taken []string) string {
	base := strings.TrimSpace(label)
	if base == "" {
		base = fallback
	}
	seen := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		seen[normalizeLabel(t)] = struct{}{}
	}
	if _, ok := seen[normalizeLabel(base)]; !ok {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, ok := seen[normalizeLabel(candidate)]; !ok {
			return candidate
		}
	}
}

func normalizeLabel(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
