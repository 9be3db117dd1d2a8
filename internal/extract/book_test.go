package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBookReleaseDate_Fixture(t *testing.T) {
	t.Parallel()

	date, err := BookReleaseDate(loadFixture(t, "book.html"))
	require.NoError(t, err)
	require.Equal(t, "2021-09-19", date)
}

func TestBookReleaseDate_MissingDetailsSection(t *testing.T) {
	t.Parallel()

	_, err := BookReleaseDate("<html><body><p>gone</p></body></html>")
	require.Error(t, err)
	require.Contains(t, err.Error(), "detailBulletsWrapper_feature_div")
}

func TestBookReleaseDate_ShortDetailsList(t *testing.T) {
	t.Parallel()

	page := `<html><body><div id="detailBulletsWrapper_feature_div">
		<ul><li><span>ASIN</span></li><li><span>Publisher</span></li></ul>
	</div></body></html>`

	_, err := BookReleaseDate(page)
	require.Error(t, err)
	require.Contains(t, err.Error(), "entries")
}

func TestBookReleaseDate_NoSpanInEntry(t *testing.T) {
	t.Parallel()

	page := `<html><body><div id="detailBulletsWrapper_feature_div">
		<ul>
			<li>one</li><li>two</li><li>three</li><li>no spans here</li>
		</ul>
	</div></body></html>`

	_, err := BookReleaseDate(page)
	require.Error(t, err)
	require.Contains(t, err.Error(), "span missing")
}
