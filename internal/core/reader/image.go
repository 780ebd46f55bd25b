package reader

import (
	"context"
)

func (r *Reader) readImage(ctx context.Context, path, _ string) (Result, error) {
	text, err := r.engine.Image(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Method: MethodImageOCR, UsedFallback: true, Pages: 1}, nil
}
