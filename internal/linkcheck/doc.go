// Package linkcheck finds broken links on the pages of a website.
//
// Pages are fetched over HTTP and parsed with goquery. Every URL a page
// references (anchors, stylesheets, scripts, images, srcset candidates,
// media, frames, form actions and meta refreshes) is requested once per
// run, no matter how many pages reference it. A link is broken when the
// request fails or answers with a status of 400 or more. Broken links are
// reported per page with a reason code such as HTTP_404 or ERRNO_ENOTFOUND.
package linkcheck
