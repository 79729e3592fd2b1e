// Copyright 2025 go-splatt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package splatt provides the shared types of a Compressed Sparse Fiber
// (CSF) sparse tensor library: the element-type constraint every
// sub-package builds on, the Options a caller tunes a build or kernel
// call with, and the error kinds a kernel can fail with.
//
// The storage engine lives in the coo and csf packages. The two numerical
// kernels live in kernel/ccd (coordinate cyclic descent completion) and
// kernel/ttmc (tensor-times-matrix chain). Thread scratch, striped locks,
// and the worker pool that both kernels share live under internal/.
//
// # Example usage
//
//	t, err := coo.New(dims, ind, vals)
//	if err != nil {
//	    return err
//	}
//	bundle, err := csf.Build(t, splatt.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	y, err := ttmc.Run(bundle, matrices, mode, splatt.DefaultOptions())
package splatt

// Real is the element-type constraint used throughout splatt: the two
// Go-native floating point types a tensor's values or a factor matrix's
// entries may hold.
type Real interface {
	~float32 | ~float64
}
