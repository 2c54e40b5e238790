// Package formats provides readers and writers for ROSE Online motion files.
//
// ZMO files hold keyframed channels for skeletons, cameras and vertex-animated
// meshes, optionally followed by a trailer of per-frame event ids and a
// blend-in interval.
package formats
