/*
Package drawing provides low-level OpenCV drawing primitives and a
deterministic color palette, used by internal/annotate to render zones,
tracked bounding boxes, and HUD text onto annotated frames.

# Components

Drawer: primitive rectangle/line/circle/text drawing operations.
Color/Palette: BGR color type plus hash-based per-ID color assignment.
*/
package drawing
