// Package theme loads user CSS themes into a render target.
//
// Theme files live in a managed directory. Each file is decrypted, its own
// color, background and custom-property declarations are marked !important,
// and its @import statements are expanded before the result is injected.
// Files ending in .theme.css are fragments: they are only pulled in through
// @import and never injected directly. Any change in the directory triggers a
// single reload of the target.
package theme
