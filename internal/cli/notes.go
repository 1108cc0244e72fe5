package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func notesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"conspectus"},
		Short:   "Manage conspectus notes and folders",
	}
	cmd.AddCommand(notesListCmd(a))
	cmd.AddCommand(notesShowCmd(a))
	cmd.AddCommand(notesSaveCmd(a))
	cmd.AddCommand(notesDeleteCmd(a))
	cmd.AddCommand(notesFoldersCmd(a))
	cmd.AddCommand(notesFolderAddCmd(a))
	cmd.AddCommand(notesFolderDeleteCmd(a))
	cmd.AddCommand(notesAssignCmd(a))
	cmd.AddCommand(notesZoomCmd(a))
	return cmd
}

func notesListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, _ := cmd.Flags().GetString("folder")
			if !cmd.Flags().Changed("folder") {
				folder = "*"
			}
			docs, err := a.notes.ListDocs(cmd.Context(), folder)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notes.")
				return nil
			}
			for _, doc := range docs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", doc.ID, doc.Title)
			}
			return nil
		},
	}
	cmd.Flags().String("folder", "", "Only notes in this folder; empty lists unfiled notes")
	return cmd
}

func notesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.notes.GetDoc(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n\n%s\n", doc.Title, doc.Content)
			return nil
		},
	}
}

func notesSaveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update a note",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			title, _ := cmd.Flags().GetString("title")
			content, _ := cmd.Flags().GetString("content")
			folder, _ := cmd.Flags().GetString("folder")

			if file, _ := cmd.Flags().GetString("file"); file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read note: %w", err)
				}
				content = string(data)
			}
			if id != "" && !cmd.Flags().Changed("title") {
				if existing, err := a.notes.GetDoc(cmd.Context(), id); err == nil {
					title = existing.Title
				}
			}

			doc, err := a.notes.SaveDoc(cmd.Context(), id, title, content, folder)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s %q\n", doc.ID, doc.Title)
			return nil
		},
	}
	cmd.Flags().String("id", "", "Note to update; a new note is created when empty")
	cmd.Flags().String("title", "", "Title")
	cmd.Flags().String("content", "", "Content")
	cmd.Flags().String("file", "", "Read the content from a file")
	cmd.Flags().String("folder", "", "Folder to file the note in")
	return cmd
}

func notesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.notes.DeleteDoc(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("note %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func notesFoldersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			folders, err := a.notes.ListFolders(cmd.Context())
			if err != nil {
				return err
			}
			for _, folder := range folders {
				docs, err := a.notes.ListDocs(cmd.Context(), folder.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%d)\n", folder.ID, folder.Name, len(docs))
			}
			return nil
		},
	}
}

func notesFolderAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "folder-add <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := a.notes.CreateFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q\n", folder.ID, folder.Name)
			return nil
		},
	}
}

func notesFolderDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder-delete <id>",
		Short: "Delete a folder and every note in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				ok, err := a.confirm(cmd, fmt.Sprintf("Delete folder %s and all notes in it?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			removed, err := a.notes.DeleteFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted folder %s and %d notes\n", args[0], removed)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func notesAssignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <note-id> [folder-id]",
		Short: "File a note into a folder; without a folder it is unfiled",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 2 {
				folder = args[1]
			}
			doc, err := a.notes.AssignDoc(cmd.Context(), args[0], folder)
			if err != nil {
				return err
			}
			if doc.FolderID == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Unfiled %s\n", doc.ID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filed %s into %s\n", doc.ID, doc.FolderID)
			return nil
		},
	}
}

func notesZoomCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "zoom [value]",
		Short: "Show or set the editor zoom",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				zoom, err := a.notes.Zoom(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%g\n", zoom)
				return nil
			}
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid zoom %q", args[0])
			}
			zoom, err := a.notes.SetZoom(cmd.Context(), value)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%g\n", zoom)
			return nil
		},
	}
}
