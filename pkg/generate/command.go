package generate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/cardforge/pkg/errors"
)

// CommandBackend runs an external generator once per image. Args may contain
// the placeholders {prompt}, {negative}, {out}, {width}, {height}, {steps}
// and {model}; {out} is the PNG path the command must write.
type CommandBackend struct {
	Command string
	Args    []string
	Model   string
}

// CommandLoader returns a Loader building a CommandBackend for each model path.
func CommandLoader(command string, args []string) Loader {
	return func(_ context.Context, path string) (Backend, error) {
		if _, err := exec.LookPath(command); err != nil {
			return nil, fmt.Errorf("generator %q not found in PATH", command)
		}
		return &CommandBackend{Command: command, Args: args, Model: path}, nil
	}
}

// Generate implements Backend.
func (b *CommandBackend) Generate(ctx context.Context, req Request, shouldAbort func() bool) ([]image.Image, error) {
	var out []image.Image
	for i := 0; i < req.Count; i++ {
		if shouldAbort != nil && shouldAbort() {
			break
		}
		img, err := b.runOnce(ctx, req)
		if err != nil {
			return out, err
		}
		out = append(out, img)
	}
	return out, nil
}

func (b *CommandBackend) runOnce(ctx context.Context, req Request) (image.Image, error) {
	dir, err := os.MkdirTemp("", "cardforge-gen-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	outPath := filepath.Join(dir, "out.png")

	replacer := strings.NewReplacer(
		"{prompt}", req.Prompt,
		"{negative}", req.NegativePrompt,
		"{out}", outPath,
		"{width}", strconv.Itoa(req.Width),
		"{height}", strconv.Itoa(req.Height),
		"{steps}", strconv.Itoa(req.Steps),
		"{model}", b.Model,
	)
	args := make([]string, len(b.Args))
	for i, a := range b.Args {
		args[i] = replacer.Replace(a)
	}

	cmd := exec.CommandContext(ctx, b.Command, args...)
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %v: %s", b.Command, err, strings.TrimSpace(errBuf.String()))
	}

	img, err := imaging.Open(outPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "%s produced no readable image", b.Command)
	}
	return img, nil
}
