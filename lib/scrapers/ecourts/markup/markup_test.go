package markup

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseOptions(t *testing.T) {
	cases := []struct {
		name   string
		data   string
		expect []Option
	}{
		{
			name: "option markup",
			data: `"<option value=\"\">Select District</option><option value=\"0\">--</option><option value=\"20\">Bengaluru</option><option value=\"21\"> Mysuru </option>"`,
			expect: []Option{
				{Value: "20", Text: "Bengaluru"},
				{Value: "21", Text: "Mysuru"},
			},
		},
		{
			name: "composite values",
			data: `"<option value=\"0\">Select court complex</option><option value=\"1010101@2,3@N\">City Civil Court</option>"`,
			expect: []Option{
				{Value: "1010101", Text: "City Civil Court", RawValue: "1010101@2,3@N", EstList: "2,3", Flag: "N"},
			},
		},
		{
			name: "pipe separated lines",
			data: `"0|Select case type\n12|CS - Civil Suit\n\n13|OS - Original Suit"`,
			expect: []Option{
				{Value: "12", Text: "CS - Civil Suit"},
				{Value: "13", Text: "OS - Original Suit"},
			},
		},
		{
			name: "list of objects",
			data: `[{"value":"","text":"Select"},{"value":"29","text":"Karnataka"},{"id":"27","name":"Maharashtra"},{"foo":"bar"}]`,
			expect: []Option{
				{Value: "29", Text: "Karnataka"},
				{Value: "27", Text: "Maharashtra"},
			},
		},
		{
			name: "value to text map",
			data: `{"0":"Select State","29":"Karnataka","3":"Punjab"}`,
			expect: []Option{
				{Value: "29", Text: "Karnataka"},
				{Value: "3", Text: "Punjab"},
			},
		},
		{
			name:   "nothing usable",
			data:   `12`,
			expect: []Option{},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			got := ParseOptions(gjson.Parse(test.data))
			if diff := cmp.Diff(test.expect, got); diff != "" {
				t.Fatal("(-want +got):\n" + diff)
			}
		})
	}
}

func TestParseOptionsDropsPlaceholders(t *testing.T) {
	markup := `
		<option value="">Choose</option>
		<option value="0">Anything</option>
		<option value="5">SELECT district</option>
		<option value="6">Select</option>
		<option value="7">Selected Works Court</option>
		<option value="8">Kolar</option>`

	for _, option := range ParseOptionMarkup(markup) {
		require.NotContains(t, []string{"", "0"}, option.Value)
		require.NotRegexp(t, `(?i)^select`, option.Text)
	}
	require.Equal(t, []Option{{Value: "8", Text: "Kolar"}}, ParseOptionMarkup(markup))
}

func TestParseStateSelect(t *testing.T) {
	byId := []byte(`<form>
		<select id="sess_state_code"><option value="1">Not this one</option></select>
		<select id="state_code" name="state_code">
			<option value="0">Select state</option>
			<option value="29">Karnataka</option>
		</select>
	</form>`)
	require.Equal(t, []Option{{Value: "29", Text: "Karnataka"}}, ParseStateSelect(byId))

	anonymous := `<select class="form-control"><option value="0">Select</option>`
	for i, name := range []string{"Andhra Pradesh", "Assam", "Bihar", "Delhi", "Goa", "Gujarat", "Haryana", "Karnataka", "Kerala", "Punjab"} {
		anonymous += fmt.Sprintf(`<option value="%d">%s</option>`, i+1, name)
	}
	anonymous += `</select>`
	require.Len(t, ParseStateSelect([]byte(anonymous)), 10)

	require.Empty(t, ParseStateSelect([]byte(`<select><option value="1">One</option></select>`)))
}

func TestParseEnvelope(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		expect string
	}{
		{name: "plain", body: `{"status":1,"app_token":"abc"}`, expect: "abc"},
		{name: "leading junk", body: "<br />\n<b>Notice</b>: Undefined index {\"app_token\":\"def\"}", expect: "def"},
		{name: "garbage", body: `<html>timeout</html>`, expect: ""},
		{name: "empty", body: ``, expect: ""},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			env := ParseEnvelope([]byte(test.body))
			require.True(t, env.IsObject())
			require.Equal(t, test.expect, Token(env))
		})
	}
}

func TestEnvelopeAccessors(t *testing.T) {
	for _, body := range []string{`{"status":1}`, `{"status":"1"}`, `{"Status":true}`, `{"success":"success"}`} {
		require.True(t, StatusOK(ParseEnvelope([]byte(body))), body)
	}
	for _, body := range []string{`{"status":0}`, `{"status":"0"}`, `{}`} {
		require.False(t, StatusOK(ParseEnvelope([]byte(body))), body)
	}

	env := ParseEnvelope([]byte(`{"token":"","csrf_token":"xyz"}`))
	require.Equal(t, "xyz", Token(env))

	env = ParseEnvelope([]byte(`{"errormsg":"Session Timeout. Please try again"}`))
	require.True(t, IsSessionTimeout(env))
	require.False(t, IsInvalidRequest(env))

	env = ParseEnvelope([]byte(`{"error_msg":"Invalid Request"}`))
	require.True(t, IsInvalidRequest(env))

	env = ParseEnvelope([]byte(`{"data":"no table here","html":"<table><tr><td>x</td></tr></table>"}`))
	require.Equal(t, "<table><tr><td>x</td></tr></table>", ListingMarkup(env))

	env = ParseEnvelope([]byte(`{"case_data":"","case_html":"<div>listing</div>"}`))
	require.Equal(t, "<div>listing</div>", ListingMarkup(env))
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name   string
		page   string
		expect string
	}{
		{
			name:   "input element",
			page:   `<form><input type="hidden" name="app_token" id="app_token" value="a1b2c3"></form>`,
			expect: "a1b2c3",
		},
		{
			name:   "script assignment",
			page:   `<script>var app_token = "0123456789abcdef0123";</script>`,
			expect: "0123456789abcdef0123",
		},
		{
			name:   "missing",
			page:   `<html><body>maintenance</body></html>`,
			expect: "",
		},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expect, ExtractToken([]byte(test.page)))
		})
	}
}

func TestParseListing(t *testing.T) {
	listing := ParseListing(readFixture(t, "listing.html"))
	expected := Listing{
		CaseType:   "CS",
		CaseNumber: "133/2025",
		Petitioner: "Ram Kumar",
		Respondent: "State of Karnataka",
		CourtName:  "Principal Civil Judge and JMFC, Bengaluru",
		Chain: ChainKey{
			CaseNo:    "200100001332025",
			Cino:      "KAHC010012342025",
			CourtCode: "1",
		},
	}
	if diff := cmp.Diff(expected, listing); diff != "" {
		t.Fatal("(-want +got):\n" + diff)
	}
	require.False(t, IsNotFound(readFixture(t, "listing.html")))
}

func TestChainKeyRoundTrip(t *testing.T) {
	keys := []ChainKey{
		{CaseNo: "200100001332025", Cino: "KAHC010012342025", CourtCode: "1"},
		{CaseNo: "201400000122019", Cino: "MHPU010001232019", CourtCode: "12"},
	}
	formats := []string{
		"viewHistory(%s,'%s',%s,'','CScaseNumber',29,1,1,'CScaseNumber')",
		`viewHistory('%s', "%s", '%s')`,
		"return viewHistory( %s , '%s' , %s );",
	}
	for _, key := range keys {
		for _, format := range formats {
			onclick := fmt.Sprintf(format, key.CaseNo, key.Cino, key.CourtCode)
			parsed, ok := ParseChainKey(onclick)
			require.True(t, ok, onclick)
			require.Equal(t, key, parsed, onclick)
		}
	}

	_, ok := ParseChainKey("viewHistory(200100001332025)")
	require.False(t, ok)
	_, ok = ParseChainKey("viewHistory(200100001332025,'',1)")
	require.False(t, ok)
	_, ok = ParseChainKey("javascript:void(0)")
	require.False(t, ok)
}

func TestIsNotFound(t *testing.T) {
	require.True(t, IsNotFound(`<div id="nodata">No data</div>`))
	require.True(t, IsNotFound(`<span style="color:red">Record Not Found</span>`))
	require.False(t, IsNotFound(`<table><tr><td>CS/133/2025</td></tr></table>`))

	listing := ParseListing(`<div id="nodata">Record not found</div>`)
	require.Equal(t, Listing{}, listing)
}

func TestParseOrderReference(t *testing.T) {
	ref := ParseOrderReference(fixtureOrderReference + "&appFlag=")
	require.Equal(t, "home/display_pdf", ref.ActionPath)
	require.Equal(t, "orders/2025/200100001332025_1.pdf", ref.Filename)
	require.Equal(t, "1", ref.Get("court_code"))
	require.Equal(t, "", ref.Get("appFlag"))
	require.Equal(t,
		[]Param{
			{Key: "normal_v", Value: "1"},
			{Key: "case_val", Value: "CS/0000133/2025"},
			{Key: "filename", Value: "/orders/2025/200100001332025_1.pdf"},
			{Key: "court_code", Value: "1"},
		},
		ref.Params,
	)
	require.Equal(t, "ecourtindia_v6/?p=home/display_pdf&"+fixtureOrderReference[len("home/display_pdf&"):]+"&appFlag=", ref.ActionURL())

	direct := ParseOrderReference(" /reports/abc123.pdf ")
	require.Equal(t, "reports/abc123.pdf", direct.DocumentPath)
	require.Empty(t, direct.ActionPath)

	encoded := ParseOrderReference("/home/display_pdf/&filename=%2Forders%2F2024%2Fx.pdf")
	require.Equal(t, "home/display_pdf", encoded.ActionPath)
	require.Equal(t, "orders/2024/x.pdf", encoded.Filename)

	other := ParseOrderReference("home/display_pdf&filename=/tmp/x.txt")
	require.Empty(t, other.Filename)

	require.Equal(t, "x.pdf", DocumentName("orders/2024/x.pdf"))
	require.Equal(t, "x.pdf", DocumentName("x.pdf"))
}
