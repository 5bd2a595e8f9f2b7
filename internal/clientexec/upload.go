package clientexec

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"sira/internal/action"
)

// RunUpload moves the already-staged file at u.From into place at u.To,
// applying ownership/permissions first so the final rename is the only
// user-visible step (spec §4's "atomic upload" invariant: after a failure
// mid-transfer, the destination equals its prior contents or doesn't
// exist). A trailing slash on To means "place under this directory using
// From's basename".
func RunUpload(u *action.UploadAction) error {
	dest := u.To
	if strings.HasSuffix(dest, "/") {
		dest = filepath.Join(dest, filepath.Base(u.From))
	}

	if _, statErr := os.Stat(dest); statErr == nil {
		if !u.Overwrite {
			return actionFailure("upload destination %s already exists and overwrite is false", dest)
		}
	} else if !os.IsNotExist(statErr) {
		return ioFailure("stat %s: %v", dest, statErr)
	}

	var err error
	if u.Group != "" {
		gid, gerr := lookupGID(u.Group)
		if gerr != nil {
			return actionFailure("upload group %q: %v", u.Group, gerr)
		}
		uid := -1
		if u.User != "" {
			uid, err = lookupUID(u.User)
			if err != nil {
				return actionFailure("upload user %q: %v", u.User, err)
			}
		}
		if err = os.Chown(u.From, uid, gid); err != nil {
			return ioFailure("chown staged file: %v", err)
		}
	} else if u.User != "" {
		uid, uerr := lookupUID(u.User)
		if uerr != nil {
			return actionFailure("upload user %q: %v", u.User, uerr)
		}
		if err = os.Chown(u.From, uid, -1); err != nil {
			return ioFailure("chown staged file: %v", err)
		}
	}

	if u.Permissions != "" {
		mode, perr := strconv.ParseUint(u.Permissions, 8, 32)
		if perr != nil {
			return actionFailure("upload permissions %q: %v", u.Permissions, perr)
		}
		if err = os.Chmod(u.From, os.FileMode(mode)); err != nil {
			return ioFailure("chmod staged file: %v", err)
		}
	}

	if err = os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return ioFailure("creating destination directory: %v", err)
	}

	if err = os.Rename(u.From, dest); err != nil {
		return ioFailure("moving staged file into place: %v", err)
	}
	return nil
}

func lookupUID(name string) (int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(u.Uid)
}

func lookupGID(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(g.Gid)
}
