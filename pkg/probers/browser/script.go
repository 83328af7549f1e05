package browser

// DefaultScript is the bundled puppeteer measurement script. It drives the
// target speed-test page in a throw-away browser profile, waits for the test
// to finish and leaves a report document plus a HAR recording in the current
// working directory. Operators can replace it via the manifest spec.
const DefaultScript = `
const fs = require('fs');
const puppeteer = require('puppeteer');
const PuppeteerHar = require('puppeteer-har');

const target = process.env.NB_SPEEDTEST_URL || 'https://speed.cloudflare.com';
const headless = process.env.NB_SPEEDTEST_HEADLESS !== 'false';
const pageWait = parseInt(process.env.NB_SPEEDTEST_PAGE_WAIT || '0', 10);

const report = { success: false, endpoint: target };

(async () => {
    const browser = await puppeteer.launch({
        headless: headless ? 'new' : false,
        // No sandbox inside the container; profile lives in the temp work dir
        args: ['--no-sandbox', '--disable-dev-shm-usage'],
        userDataDir: './profile',
    });

    try {
        const page = await browser.newPage();
        const har = new PuppeteerHar(page);
        await har.start({ path: 'recording.har' });

        await page.goto(target, { waitUntil: 'networkidle2', timeout: 120000 });
        if (pageWait > 0) {
            await new Promise((resolve) => setTimeout(resolve, pageWait * 1000));
        }

        // The measurement page exposes its state on window; poll until the
        // run is complete or give up after 10 minutes.
        const results = await page.waitForFunction(() => {
            const m = window.__speedtest && window.__speedtest.results;
            return m && m.isFinished() ? m.getSummary() : false;
        }, { polling: 1000, timeout: 600000 });

        const summary = await results.jsonValue();
        report.success = true;
        report.sessionID = summary.sessionID;
        report.result = {
            download: summary.download,
            upload: summary.upload,
            latency: summary.latency,
            jitter: summary.jitter,
            downLoadedLatency: summary.downLoadedLatency,
            downLoadedJitter: summary.downLoadedJitter,
            upLoadedLatency: summary.upLoadedLatency,
            upLoadedJitter: summary.upLoadedJitter,
        };

        await har.stop();
    } catch (err) {
        report.error = String(err);
    } finally {
        fs.writeFileSync('measurement.json', JSON.stringify(report));
        await browser.close();
        process.exitCode = report.success ? 0 : 1;
    }
})();
`
