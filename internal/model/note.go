package model

const (
	DefaultDocTitle   = "Untitled"
	DefaultFolderName = "Folder"

	ZoomDefault = 1.0
	ZoomMin     = 0.85
	ZoomMax     = 1.5
)

// Doc is one conspectus entry.
type Doc struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	FolderID string `json:"folderId,omitempty"`
}

type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func ClampZoom(value float64) float64 {
	if value != value {
		return ZoomDefault
	}
	if value < ZoomMin {
		return ZoomMin
	}
	if value > ZoomMax {
		return ZoomMax
	}
	return value
}
