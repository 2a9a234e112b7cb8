package descriptor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ocm.software/open-component-model/artifactresolver/transport"
)

// maxDescriptorSize bounds the content read from a descriptor resource.
const maxDescriptorSize = 16 << 20

// ReadContent returns the content of a descriptor resource.
func ReadContent(ctx context.Context, res transport.Resource) (_ []byte, err error) {
	rc, err := res.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", res.Name(), err)
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()
	data, err := io.ReadAll(io.LimitReader(rc, maxDescriptorSize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", res.Name(), err)
	}
	if len(data) > maxDescriptorSize {
		return nil, &ParseError{Resource: res.Name(), Err: fmt.Errorf("descriptor exceeds %d bytes", maxDescriptorSize)}
	}
	return data, nil
}
