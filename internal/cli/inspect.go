package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/dump"
	"github.com/LDVSOFT/TestCompat/internal/ir"
	"github.com/LDVSOFT/TestCompat/internal/meta"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <file.class>",
		Short: "Print a class file as text",
		Long: `Print the structure of a class file: header, annotations, nested classes,
fields, and methods with their instructions.

Example:
  ssg dump out/p/A.class`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cls, err := readClassFile(args[0])
			if err != nil {
				return err
			}
			if err := dump.Write(cmd.OutOrStdout(), cls); err != nil {
				return WrapExitError(ExitFailure, "failed to write dump", err)
			}
			return nil
		},
	}
	return cmd
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file.class>",
		Short: "Print the version metadata of a generated class",
		Long: `Read the existence, visibility, modality and nullability markers of a
generated class and its members.

Examples:
  ssg inspect out/p/A.class
  ssg inspect out/p/A.class --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	cls, err := readClassFile(path)
	if err != nil {
		return err
	}
	md, err := meta.Inspect(cls)
	if err != nil {
		return WrapExitError(ExitFailure, "malformed metadata", err)
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return f.Success(md.Snapshot())
	}
	writeMetadata(cmd.OutOrStdout(), md)
	return nil
}

func readClassFile(path string) (*classfile.Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitConfigError, "cannot read class file", err)
	}
	cls, err := classfile.Decode(data)
	if err != nil {
		return nil, WrapExitError(ExitFailure, fmt.Sprintf("cannot decode %s", path), err)
	}
	return cls, nil
}

func writeMetadata(w io.Writer, md *meta.ClassMetadata) {
	fmt.Fprintf(w, "class %s%s\n", md.Name, markers(&md.Metadata))
	for _, f := range md.Fields {
		fmt.Fprintf(w, "  field %s:%s%s\n", f.Name, f.Desc, markers(&f.Metadata))
	}
	for _, m := range md.Methods {
		fmt.Fprintf(w, "  method %s%s%s\n", m.Name, m.Desc, markers(&m.Metadata))
		for i := range m.Parameters {
			if m.Parameters[i].HasMarkers() {
				fmt.Fprintf(w, "    parameter %d%s\n", i, markers(&m.Parameters[i]))
			}
		}
	}
}

// markers renders the present markers, each preceded by a space.
func markers(md *meta.Metadata) string {
	var b strings.Builder
	if md.ExistsIn != nil {
		fmt.Fprintf(&b, " exists_in=[%s]", strings.Join(md.ExistsIn, " "))
	}
	if md.AltVisibility != nil {
		fmt.Fprintf(&b, " alt_visibility=%s", history(md.AltVisibility))
	}
	if md.AltModality != nil {
		fmt.Fprintf(&b, " alt_modality=%s", history(md.AltModality))
	}
	if md.Nullability != ir.NullabilityDefault {
		fmt.Fprintf(&b, " nullability=%s", md.Nullability)
	}
	return b.String()
}

func history[T interface {
	comparable
	fmt.Stringer
}](cs []ir.Change[T]) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.Version.String() + "=" + c.Value.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
