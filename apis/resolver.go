/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package apis

// Resolver infers the response kind and semantic type of a declaration.
// Implementations are stateless and safe for concurrent use.
type Resolver interface {
	// Resolve classifies decl. rx is the reactive capability of the
	// environment, or nil when it is absent. Contract violations in the
	// declared signature are reported as ErrInvalidSignature.
	Resolve(decl Declaration, rx Reactive) (Signature, error)
}
